package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	"github.com/brunotavares/sorrisodigital-backend/pkg/pagination"
)

func seedLead(t *testing.T, repo Repository, clinic string, status enums.LeadStatus, archived bool, createdAt time.Time) models.Lead {
	t.Helper()

	lead := models.Lead{
		ID:              uuid.New(),
		ClinicName:      clinic,
		ResponsibleName: "Dra. Ana",
		Email:           "ana@" + clinic + ".com.br",
		Whatsapp:        "+5511999990000",
		Status:          status,
		TotalCents:      149700,
		Version:         1,
		Archived:        archived,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, repo.Insert(context.Background(), &lead))
	return lead
}

func TestRepositoryListFilters(t *testing.T) {
	gdb := setupLeadsTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	novo := seedLead(t, repo, "sorridentes", enums.LeadStatusNovo, false, base)
	producao := seedLead(t, repo, "odontoclin", enums.LeadStatusEmProducao, false, base.Add(time.Minute))
	seedLead(t, repo, "arquivada", enums.LeadStatusNovo, true, base.Add(2*time.Minute))

	rows, err := repo.List(ctx, ListQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2, "archived leads stay out of the default listing")
	assert.Equal(t, producao.ID, rows[0].ID, "newest lead comes first")
	assert.Equal(t, novo.ID, rows[1].ID)

	rows, err = repo.List(ctx, ListQuery{Limit: 10, IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	status := enums.LeadStatusEmProducao
	rows, err = repo.List(ctx, ListQuery{Limit: 10, Status: &status})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, producao.ID, rows[0].ID)

	rows, err = repo.List(ctx, ListQuery{Limit: 10, Search: "odonto"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, producao.ID, rows[0].ID)
}

func TestRepositoryListCursor(t *testing.T) {
	gdb := setupLeadsTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	base := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	var seeded []models.Lead
	for i := 0; i < 3; i++ {
		seeded = append(seeded, seedLead(t, repo, "clinica", enums.LeadStatusNovo, false, base.Add(time.Duration(i)*time.Minute)))
	}

	first, err := repo.List(ctx, ListQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)

	cursor := &pagination.Cursor{CreatedAt: first[1].CreatedAt, ID: first[1].ID}
	second, err := repo.List(ctx, ListQuery{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, seeded[0].ID, second[0].ID, "cursor resumes past the last returned row")
}

func TestRepositoryUpdateGuarded(t *testing.T) {
	gdb := setupLeadsTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	lead := seedLead(t, repo, "guardada", enums.LeadStatusNovo, false, time.Now().UTC())

	affected, err := repo.UpdateGuarded(ctx, lead.ID, lead.Version, map[string]interface{}{
		"status": enums.LeadStatusEmProducao,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	updated, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LeadStatusEmProducao, updated.Status)
	assert.Equal(t, lead.Version+1, updated.Version)

	// A writer holding the old version loses the race.
	affected, err = repo.UpdateGuarded(ctx, lead.ID, lead.Version, map[string]interface{}{
		"status": enums.LeadStatusConcluido,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, affected)

	unchanged, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LeadStatusEmProducao, unchanged.Status)
}

func TestRepositoryNotesAndHistory(t *testing.T) {
	gdb := setupLeadsTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	lead := seedLead(t, repo, "anotada", enums.LeadStatusNovo, false, time.Now().UTC())
	author := uuid.New()

	older := models.LeadNote{ID: uuid.New(), LeadID: lead.ID, AuthorID: author, Body: "primeiro contato", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := models.LeadNote{ID: uuid.New(), LeadID: lead.ID, AuthorID: author, Body: "briefing revisado", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.InsertNote(ctx, &older))
	require.NoError(t, repo.InsertNote(ctx, &newer))

	notes, err := repo.ListNotes(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, newer.ID, notes[0].ID, "notes list newest first")

	firstMove := models.LeadStatusHistory{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		OldStatus: enums.LeadStatusNovo,
		NewStatus: enums.LeadStatusEmProducao,
		ChangedBy: author.String(),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	secondMove := models.LeadStatusHistory{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		OldStatus: enums.LeadStatusEmProducao,
		NewStatus: enums.LeadStatusEmAjustes,
		ChangedBy: author.String(),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.AppendHistory(ctx, &firstMove))
	require.NoError(t, repo.AppendHistory(ctx, &secondMove))

	history, err := repo.ListHistory(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, firstMove.ID, history[0].ID, "history reads oldest first")
	assert.Equal(t, enums.LeadStatusEmAjustes, history[1].NewStatus)
}
