package testdata

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// LeadGeneratorConfig configures lead generation parameters
type LeadGeneratorConfig struct {
	TenantID    string
	Count       int
	Stages      []models.Stage    // empty means any stage
	Priorities  []models.Priority // empty means any priority
	MinBudget   int
	MaxBudget   int
	EmailChance float64 // 0.0-1.0 (probability of having email)
	PhoneChance float64
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// States is the pool of US state codes used for the "state" attribute.
var States = []string{"CA", "NV", "AZ", "TX", "NY", "FL", "WA", "OR", "CO", "IL"}

var priorities = []models.Priority{
	models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent,
}

// Generator produces reproducible fake leads, reps and rules.
type Generator struct {
	faker *gofakeit.Faker
	seq   int
}

// NewGenerator creates a generator seeded for reproducible output.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// DefaultConfig returns sensible defaults for lead generation
func DefaultConfig(tenantID string, count int) LeadGeneratorConfig {
	return LeadGeneratorConfig{
		TenantID:    tenantID,
		Count:       count,
		MinBudget:   5000,
		MaxBudget:   90000,
		EmailChance: 0.9,
		PhoneChance: 0.7,
		CreatedFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedTo:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

// GenerateLead creates a single lead snapshot.
func (g *Generator) GenerateLead(config LeadGeneratorConfig) models.Lead {
	g.seq++
	f := g.faker

	stages := config.Stages
	if len(stages) == 0 {
		stages = models.Stages
	}
	prios := config.Priorities
	if len(prios) == 0 {
		prios = priorities
	}

	attrs := map[string]any{
		"first_name": f.FirstName(),
		"last_name":  f.LastName(),
		"budget":     float64(f.Number(config.MinBudget, config.MaxBudget)),
		"lead_score": float64(f.Number(0, 100)),
		"state":      States[f.Number(0, len(States)-1)],
		"source":     f.RandomString([]string{"website", "referral", "walk_in", "phone", "marketplace"}),
		"vehicle":    fmt.Sprintf("%s %s", f.CarMaker(), f.CarModel()),
	}
	if f.Float64Range(0, 1) < config.EmailChance {
		attrs["email"] = f.Email()
	}
	if f.Float64Range(0, 1) < config.PhoneChance {
		// 202-456 numbers are valid fixed-line numbers in libphonenumber metadata.
		attrs["phone"] = fmt.Sprintf("+1 202 456 %04d", f.Number(0, 9999))
	}

	created := config.CreatedFrom
	if config.CreatedTo.After(config.CreatedFrom) {
		created = f.DateRange(config.CreatedFrom, config.CreatedTo).UTC()
	}

	lead := models.Lead{
		ID:         fmt.Sprintf("lead-%04d", g.seq),
		TenantID:   config.TenantID,
		Stage:      stages[f.Number(0, len(stages)-1)],
		Priority:   prios[f.Number(0, len(prios)-1)],
		Attributes: attrs,
		CreatedAt:  created,
	}
	if lead.Stage == models.StageAppointmentScheduled {
		at := created.Add(time.Duration(f.Number(24, 96)) * time.Hour)
		lead.AppointmentAt = &at
	}
	return lead
}

// GenerateLeads generates multiple leads
func (g *Generator) GenerateLeads(config LeadGeneratorConfig) []models.Lead {
	leads := make([]models.Lead, config.Count)
	for i := 0; i < config.Count; i++ {
		leads[i] = g.GenerateLead(config)
	}
	return leads
}

// GenerateReps creates count reps with random load below capacity. Every
// third rep is inactive when withInactive is set.
func (g *Generator) GenerateReps(tenantID string, count int, withInactive bool) []models.Rep {
	f := g.faker
	reps := make([]models.Rep, count)
	for i := range reps {
		capacity := f.Number(5, 30)
		reps[i] = models.Rep{
			ID:          fmt.Sprintf("rep-%03d", i+1),
			TenantID:    tenantID,
			Name:        f.Name(),
			Email:       f.Email(),
			Active:      !(withInactive && i%3 == 2),
			CurrentLoad: f.Number(0, capacity-1),
			MaxCapacity: capacity,
		}
	}
	return reps
}

// GenerateRules creates count rules with random conditions, status and
// priority. Priorities collide on purpose so creation-order ties get exercised.
func (g *Generator) GenerateRules(tenantID string, count int, candidates []string) []models.AssignmentRule {
	f := g.faker
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	rules := make([]models.AssignmentRule, count)
	for i := range rules {
		status := models.RuleActive
		if f.Bool() {
			status = models.RuleInactive
		}
		rules[i] = models.AssignmentRule{
			ID:         fmt.Sprintf("rule-%03d", i+1),
			TenantID:   tenantID,
			Name:       f.BuzzWord(),
			Priority:   f.Number(1, 4),
			Status:     status,
			Conditions: g.randomConditions(),
			Directive: models.AssignmentDirective{
				Type:       models.DirectiveUser,
				Candidates: candidates,
			},
			CreatedAt: base.Add(time.Duration(f.Number(0, 1000)) * time.Minute),
		}
	}
	return rules
}

func (g *Generator) randomConditions() []models.Condition {
	f := g.faker
	n := f.Number(0, 2)
	conds := make([]models.Condition, 0, n)
	for i := 0; i < n; i++ {
		switch f.Number(0, 3) {
		case 0:
			conds = append(conds, models.Condition{Field: "budget", Operator: models.OpGreaterThan, Value: fmt.Sprint(f.Number(5000, 90000))})
		case 1:
			conds = append(conds, models.Condition{Field: "state", Operator: models.OpIn, Value: fmt.Sprintf("%s,%s", States[f.Number(0, 4)], States[f.Number(5, 9)])})
		case 2:
			lo := f.Number(0, 60)
			conds = append(conds, models.Condition{Field: "lead_score", Operator: models.OpBetween, Value: fmt.Sprintf("%d-%d", lo, lo+f.Number(0, 40))})
		default:
			conds = append(conds, models.Condition{Field: "source", Operator: models.OpEquals, Value: "referral"})
		}
	}
	return conds
}
