// Package catalog serves the static reference data shown by the UI:
// knowledge subjects, companies, document types, sample documents, users
// and dashboard figures.
package catalog

import (
	"context"
	"time"

	"github.com/xiaot623/smartdoc/internal/domain"
)

// Document is a sample knowledge-base entry.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	UploadedBy string `json:"uploaded_by"`
	Date       string `json:"date"`
	Size       string `json:"size"`
	Status     string `json:"status"`
}

// User is a sample directory entry.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Stat is one dashboard figure.
type Stat struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Catalog is the full reference payload.
type Catalog struct {
	Subjects      []string   `json:"subjects"`
	Companies     []string   `json:"companies"`
	DocumentTypes []string   `json:"document_types"`
	Documents     []Document `json:"documents"`
	Users         []User     `json:"users"`
	Stats         []Stat     `json:"stats"`
}

var (
	subjects = []string{
		"Política de RH",
		"Processos de Vendas",
		"Normas de Segurança",
		"Documentação Técnica",
		"Jurídico Geral",
	}
	companies = []string{
		"Paipe Tecnologia",
		"Empresa X",
		"Partner Corp",
		"Consultoria ABC",
	}
	documentTypes = []string{
		"Contrato de Trabalho",
		"Contrato de Locação",
		"NDA",
		"Proposta Comercial",
		"Relatório Técnico",
	}
	documents = []Document{
		{ID: "1", Name: "Contrato_Prestacao_Servicos_XPTO.pdf", Type: "Contrato", UploadedBy: "Alice", Date: "2023-10-25", Size: "2.4 MB", Status: "Processed"},
		{ID: "2", Name: "Manual_Conduta_Interna.docx", Type: "Normativo", UploadedBy: "Bob", Date: "2023-10-24", Size: "1.1 MB", Status: "Processed"},
		{ID: "3", Name: "Relatorio_Financeiro_Q3.csv", Type: "Relatório", UploadedBy: "Alice", Date: "2023-10-20", Size: "500 KB", Status: "Processed"},
		{ID: "4", Name: "NDA_Partner_Y.pdf", Type: "NDA", UploadedBy: "Bob", Date: "2023-10-18", Size: "1.8 MB", Status: "Pending"},
	}
	users = []User{
		{ID: "1", Name: "Alice Silva", Email: "alice@paipe.co", Role: "admin", Status: "active"},
		{ID: "2", Name: "Bob Santos", Email: "bob@paipe.co", Role: "user", Status: "active"},
		{ID: "3", Name: "Charlie Costa", Email: "charlie@paipe.co", Role: "viewer", Status: "inactive"},
	}
)

// Dashboard labels.
const (
	StatKnowledgeSources = "Total de Fontes de Conhecimento"
	StatMonthlyQueries   = "Consultas no Mês"
	StatMonthlyAnalyses  = "Análises no Mês"
)

// Baseline figures carried by the dashboard before any live activity.
const (
	baseKnowledgeSources = 1215
	baseMonthlyQueries   = 8432
	baseMonthlyAnalyses  = 942
)

// CallCounter counts completed model calls of one kind since a
// Unix-millisecond timestamp.
type CallCounter interface {
	CountCallsSince(ctx context.Context, kind domain.CallKind, sinceTs int64) (int, error)
}

// Service builds catalog payloads.
type Service struct {
	counter CallCounter
	now     func() time.Time
}

// New creates a catalog service. counter may be nil, in which case only the
// baseline figures are reported.
func New(counter CallCounter) *Service {
	return &Service{counter: counter, now: time.Now}
}

// Get returns the catalog with dashboard figures that include the current
// month's journaled chat and analysis calls.
func (s *Service) Get(ctx context.Context) (*Catalog, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		Subjects:      append([]string(nil), subjects...),
		Companies:     append([]string(nil), companies...),
		DocumentTypes: append([]string(nil), documentTypes...),
		Documents:     append([]Document(nil), documents...),
		Users:         append([]User(nil), users...),
		Stats:         stats,
	}, nil
}

// Stats returns the dashboard figures.
func (s *Service) Stats(ctx context.Context) ([]Stat, error) {
	queries, analyses := baseMonthlyQueries, baseMonthlyAnalyses
	if s.counter != nil {
		now := s.now()
		since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).UnixMilli()

		n, err := s.counter.CountCallsSince(ctx, domain.CallKindChat, since)
		if err != nil {
			return nil, err
		}
		queries += n

		n, err = s.counter.CountCallsSince(ctx, domain.CallKindAnalysis, since)
		if err != nil {
			return nil, err
		}
		analyses += n
	}
	return []Stat{
		{Label: StatKnowledgeSources, Value: baseKnowledgeSources},
		{Label: StatMonthlyQueries, Value: queries},
		{Label: StatMonthlyAnalyses, Value: analyses},
	}, nil
}
