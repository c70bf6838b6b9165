package normalizer

import (
	"testing"

	"github.com/datapole/go-etl/internal/domain"
)

func TestNormalizeSalary(t *testing.T) {
	policy := SalaryPolicy{HourlyMax: 100, MonthlyMax: 10000}

	tests := []struct {
		name string
		in   string
		want domain.Salary
	}{
		{
			"yearly range with spaces",
			"35 000 - 40 000 € par an",
			domain.Salary{Min: 35000, Max: 40000, Currency: "EUR", Period: domain.PeriodYearly},
		},
		{
			"api libelle with bounds currency",
			"Annuel de 35 000,00 Euros à 40 000,00 Euros sur 12 mois",
			domain.Salary{Min: 35000, Max: 40000, Currency: "EUR", Period: domain.PeriodYearly},
		},
		{
			"hourly single amount",
			"Horaire de 11,88 Euros",
			domain.Salary{Min: 11.88, Currency: "EUR", Period: domain.PeriodHourly},
		},
		{
			"monthly range",
			"2 000 € à 2 500 € par mois",
			domain.Salary{Min: 2000, Max: 2500, Currency: "EUR", Period: domain.PeriodMonthly},
		},
		{
			"k suffix single",
			"45k€",
			domain.Salary{Min: 45000, Currency: "EUR", Period: domain.PeriodYearly},
		},
		{
			"k suffix shared across range",
			"35 à 40k€",
			domain.Salary{Min: 35000, Max: 40000, Currency: "EUR", Period: domain.PeriodYearly},
		},
		{
			"pound before amount",
			"£50,000 per year",
			domain.Salary{Min: 50000, Currency: "GBP", Period: domain.PeriodYearly},
		},
		{
			"dollar k",
			"$60k",
			domain.Salary{Min: 60000, Currency: "USD", Period: domain.PeriodYearly},
		},
		{
			"negotiable",
			"Selon profil",
			domain.Salary{Currency: "EUR", Period: domain.PeriodNegotiable},
		},
		{
			"daily rate",
			"TJM 500 €",
			domain.Salary{Min: 500, Currency: "EUR", Period: domain.PeriodDaily},
		},
		{
			"magnitude fallback monthly",
			"1 800 €",
			domain.Salary{Min: 1800, Currency: "EUR", Period: domain.PeriodMonthly},
		},
		{"empty", "", domain.Salary{}},
		{"no amount no cue", "Salaire attractif", domain.Salary{}},
	}

	for _, tt := range tests {
		if got := NormalizeSalary(tt.in, policy); got != tt.want {
			t.Errorf("%s: NormalizeSalary(%q) = %+v, want %+v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestSalaryPolicyThresholds(t *testing.T) {
	policy := SalaryPolicy{HourlyMax: 100, MonthlyMax: 10000}
	tests := []struct {
		amount float64
		want   domain.SalaryPeriod
	}{
		{12, domain.PeriodHourly},
		{99.99, domain.PeriodHourly},
		{100, domain.PeriodMonthly},
		{1800, domain.PeriodMonthly},
		{10000, domain.PeriodYearly},
		{45000, domain.PeriodYearly},
	}
	for _, tt := range tests {
		if got := policy.classify(tt.amount); got != tt.want {
			t.Errorf("classify(%v) = %v, want %v", tt.amount, got, tt.want)
		}
	}
}
