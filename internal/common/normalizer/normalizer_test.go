package normalizer

import (
	"testing"

	"github.com/datapole/go-etl/internal/common/cleaner"
	"github.com/datapole/go-etl/internal/domain"
)

func TestNormalizeFranceTravailRecord(t *testing.T) {
	n := NewNormalizer(cleaner.NewCleaner(), Options{})
	raw := &domain.RawPosting{
		Source: domain.SourceFranceTravail,
		RawData: map[string]any{
			"id":                 "184CYRD",
			"intitule":           "Data Analyst (H/F)",
			"description":        "<p>Analyse de données &amp; reporting.</p><p>Python requis.</p>",
			"entreprise":         map[string]any{"nom": "DataPole"},
			"lieuTravail":        map[string]any{"libelle": "75 - Paris", "commune": "75056"},
			"typeContrat":        "CDI",
			"typeContratLibelle": "Contrat à durée indéterminée",
			"salaire":            map[string]any{"libelle": "35 000 - 40 000 € par an"},
			"experienceLibelle":  "2 An(s)",
			"dateCreation":       "2019-07-10T14:30:00.000Z",
			"origineOffre":       map[string]any{"urlOrigine": "https://candidat.francetravail.fr/offres/recherche/detail/184CYRD"},
		},
	}

	p, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if p.ExternalID != "184CYRD" {
		t.Errorf("ExternalID = %q", p.ExternalID)
	}
	if p.Title != "Data Analyst (H/F)" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Description != "Analyse de données & reporting. Python requis." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Company != "DataPole" {
		t.Errorf("Company = %q", p.Company)
	}
	if p.Location.City != "Paris" || p.Location.Department != "75" || p.Location.Country != "France" {
		t.Errorf("Location = %+v", p.Location)
	}
	if p.ContractRaw != "CDI" || p.ContractStd != domain.ContractCDI {
		t.Errorf("contract = %q / %v", p.ContractRaw, p.ContractStd)
	}
	wantSalary := domain.Salary{Min: 35000, Max: 40000, Currency: "EUR", Period: domain.PeriodYearly}
	if p.Salary != wantSalary {
		t.Errorf("Salary = %+v, want %+v", p.Salary, wantSalary)
	}
	if p.Experience.MinYears != 2 || p.Experience.Level != domain.LevelMid {
		t.Errorf("Experience = %+v", p.Experience)
	}
	if p.CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}
	if !p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be zero when dateActualisation is absent")
	}
	if p.URL == "" {
		t.Error("URL not extracted from origineOffre")
	}
	if p.Source != string(domain.SourceFranceTravail) {
		t.Errorf("Source = %q", p.Source)
	}
}

func TestNormalizeWelcomeJungleRecord(t *testing.T) {
	n := NewNormalizer(cleaner.NewCleaner(), Options{})
	raw := &domain.RawPosting{
		Source: domain.SourceWelcomeJungle,
		RawData: map[string]any{
			"id":            "wttj-42",
			"title":         "Data Engineer",
			"description":   "<div>Pipeline SQL et AWS.</div>",
			"company":       "Jungle Corp",
			"location":      "Lyon",
			"contract_type": "ALTERNANCE",
			"salary":        "45k€",
			"url":           "https://www.welcometothejungle.com/fr/jobs/wttj-42",
		},
	}

	p, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if p.ExternalID != "wttj-42" {
		t.Errorf("ExternalID = %q", p.ExternalID)
	}
	if p.Location.City != "Lyon" || p.Location.Country != "France" {
		t.Errorf("Location = %+v", p.Location)
	}
	if p.ContractStd != domain.ContractApprenticeship {
		t.Errorf("ContractStd = %v", p.ContractStd)
	}
	if p.Salary.Min != 45000 || p.Salary.Period != domain.PeriodYearly {
		t.Errorf("Salary = %+v", p.Salary)
	}
}

func TestNormalizeDefaultsOnSparseRecord(t *testing.T) {
	n := NewNormalizer(cleaner.NewCleaner(), Options{})
	raw := &domain.RawPosting{
		Source:  domain.SourceFranceTravail,
		RawData: map[string]any{"id": "184ABCD"},
	}

	p, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if p.Company != "Entreprise non spécifiée" {
		t.Errorf("Company = %q, want the unspecified sentinel", p.Company)
	}
	if p.ContractStd != domain.ContractOther {
		t.Errorf("ContractStd = %v", p.ContractStd)
	}
	if p.Experience.Level != domain.LevelNotSpecified {
		t.Errorf("Experience.Level = %v", p.Experience.Level)
	}
	if p.Salary != (domain.Salary{}) {
		t.Errorf("Salary = %+v, want zero", p.Salary)
	}
	if p.Location.Country != "France" {
		t.Errorf("Location.Country = %q, want home country default", p.Location.Country)
	}
}

func TestNormalizeRejectsMissingID(t *testing.T) {
	n := NewNormalizer(cleaner.NewCleaner(), Options{})
	_, err := n.Normalize(&domain.RawPosting{
		Source:  domain.SourceFranceTravail,
		RawData: map[string]any{"intitule": "Data Analyst"},
	})
	if err == nil {
		t.Fatal("expected an error for a record without an id")
	}
}
