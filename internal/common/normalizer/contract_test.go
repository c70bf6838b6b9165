package normalizer

import (
	"testing"

	"github.com/datapole/go-etl/internal/domain"
)

func TestNormalizeContract(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		title string
		want  domain.Contract
	}{
		{"cdi code", "CDI", "", domain.ContractCDI},
		{"cdi long form", "Contrat à durée indéterminée", "", domain.ContractCDI},
		{"cdd long form", "Contrat à durée déterminée de 6 mois", "", domain.ContractCDD},
		{"cdd code", "CDD", "Développeur Java", domain.ContractCDD},
		{"interim", "Mission intérimaire", "", domain.ContractInterim},
		{"apprenticeship", "Contrat d'apprentissage", "", domain.ContractApprenticeship},
		{"alternance", "Alternance 24 mois", "", domain.ContractApprenticeship},
		{"internship from raw", "Stage de 6 mois", "Data Analyst", domain.ContractInternship},
		{"internship from title", "", "Stage Data Science", domain.ContractInternship},
		{"freelance", "Mission freelance", "", domain.ContractFreelance},
		{"part time", "Temps partiel 24h", "", domain.ContractPartTime},
		{"full time", "Temps plein", "", domain.ContractFullTime},
		{"empty", "", "", domain.ContractOther},
		{"unknown", "Autre dispositif", "Consultant", domain.ContractOther},
		{"international is not an internship", "", "International Business Developer", domain.ContractOther},
		{"permanent english", "Permanent contract", "", domain.ContractCDI},
	}

	for _, tt := range tests {
		if got := NormalizeContract(tt.raw, tt.title); got != tt.want {
			t.Errorf("%s: NormalizeContract(%q, %q) = %v, want %v", tt.name, tt.raw, tt.title, got, tt.want)
		}
	}
}

func TestNormalizeContractIdempotent(t *testing.T) {
	all := []domain.Contract{
		domain.ContractCDI, domain.ContractCDD, domain.ContractInternship,
		domain.ContractApprenticeship, domain.ContractFreelance, domain.ContractInterim,
		domain.ContractFullTime, domain.ContractPartTime, domain.ContractOther,
	}
	for _, c := range all {
		if got := NormalizeContract(string(c), ""); got != c {
			t.Errorf("re-normalizing %v gave %v", c, got)
		}
	}
}
