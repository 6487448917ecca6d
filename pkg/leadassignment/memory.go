package leadassignment

import (
	"context"
	"sort"
	"sync"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// MemoryRoster keeps reps in process. It backs tests and the memory cursor
// backend; loads are tracked with ShardedCounters so increments from
// concurrent routings are never lost.
type MemoryRoster struct {
	mu    sync.RWMutex
	reps  map[string]map[string]models.Rep
	teams map[string]map[string][]string
	loads *ShardedCounters
}

var _ domain.RosterRepository = (*MemoryRoster)(nil)

// NewMemoryRoster creates an empty roster.
func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{
		reps:  make(map[string]map[string]models.Rep),
		teams: make(map[string]map[string][]string),
		loads: NewShardedCounters(),
	}
}

func loadKey(tenantID, repID string) string {
	return tenantID + "/" + repID
}

// Put adds or replaces reps. The rep's CurrentLoad becomes its tracked load.
func (m *MemoryRoster) Put(tenantID string, reps ...models.Rep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reps[tenantID] == nil {
		m.reps[tenantID] = make(map[string]models.Rep)
	}
	for _, r := range reps {
		r.TenantID = tenantID
		m.reps[tenantID][r.ID] = r
		key := loadKey(tenantID, r.ID)
		m.loads.Add(key, int64(r.CurrentLoad)-m.loads.Get(key))
	}
}

// SetTeam replaces the members of a team.
func (m *MemoryRoster) SetTeam(tenantID, teamID string, repIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.teams[tenantID] == nil {
		m.teams[tenantID] = make(map[string][]string)
	}
	m.teams[tenantID][teamID] = append([]string(nil), repIDs...)
}

// Load returns a snapshot of the tenant's reps sorted by id.
func (m *MemoryRoster) Load(ctx context.Context, tenantID string) (models.Roster, error) {
	if err := ctx.Err(); err != nil {
		return models.Roster{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	roster := models.Roster{Teams: make(map[string][]string)}
	for _, r := range m.reps[tenantID] {
		r.CurrentLoad = int(m.loads.Get(loadKey(tenantID, r.ID)))
		roster.Reps = append(roster.Reps, r)
	}
	sort.Slice(roster.Reps, func(i, j int) bool { return roster.Reps[i].ID < roster.Reps[j].ID })
	for team, members := range m.teams[tenantID] {
		roster.Teams[team] = append([]string(nil), members...)
	}
	return roster, nil
}

// IncrementLoad adds one to the rep's load and returns the new value.
func (m *MemoryRoster) IncrementLoad(ctx context.Context, tenantID, repID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	_, ok := m.reps[tenantID][repID]
	m.mu.RUnlock()
	if !ok {
		return 0, domain.NewNotFoundError("rep")
	}
	return int(m.loads.Add(loadKey(tenantID, repID), 1)), nil
}
