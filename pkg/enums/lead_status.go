package enums

import "fmt"

// LeadStatus tracks where a lead sits in the production pipeline.
type LeadStatus string

const (
	LeadStatusNovo                LeadStatus = "novo"
	LeadStatusAguardandoAprovacao LeadStatus = "aguardando_aprovacao"
	LeadStatusAprovadoPagamento   LeadStatus = "aprovado_pagamento"
	LeadStatusEmProducao          LeadStatus = "em_producao"
	LeadStatusEmAjustes           LeadStatus = "em_ajustes"
	LeadStatusAprovacaoFinal      LeadStatus = "aprovacao_final"
	LeadStatusNoAr                LeadStatus = "no_ar"
	LeadStatusConcluido           LeadStatus = "concluido"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusNovo,
	LeadStatusAguardandoAprovacao,
	LeadStatusAprovadoPagamento,
	LeadStatusEmProducao,
	LeadStatusEmAjustes,
	LeadStatusAprovacaoFinal,
	LeadStatusNoAr,
	LeadStatusConcluido,
}

// adminTransitions is the graph of manual moves the back office may perform.
// Payment-driven moves are decided by the reconciliation engine and bypass
// this table.
var adminTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNovo:                {LeadStatusAguardandoAprovacao},
	LeadStatusAguardandoAprovacao: {LeadStatusNovo},
	LeadStatusAprovadoPagamento:   {LeadStatusEmProducao},
	LeadStatusEmProducao:          {LeadStatusEmAjustes, LeadStatusAprovacaoFinal},
	LeadStatusEmAjustes:           {LeadStatusAprovacaoFinal},
	LeadStatusAprovacaoFinal:      {LeadStatusEmAjustes, LeadStatusNoAr},
	LeadStatusNoAr:                {LeadStatusConcluido},
	LeadStatusConcluido:           {},
}

// String implements fmt.Stringer.
func (s LeadStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LeadStatus.
func (s LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the back office may move a lead from s to
// target by hand.
func (s LeadStatus) CanTransitionTo(target LeadStatus) bool {
	for _, candidate := range adminTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into a LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}
