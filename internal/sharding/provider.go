package sharding

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dbsmedya/goshard/internal/config"
	"github.com/dbsmedya/goshard/internal/sqlutil"
)

// DataSource is one physical database registered under a group.
type DataSource struct {
	Name               string
	Type               string
	DSN                string
	Role               string
	MaxConnections     int
	MaxIdleConnections int
}

// EntityRule describes how an entity is spread across a group.
type EntityRule struct {
	Entity      string
	Table       string
	Group       string
	ShardColumn string
	Strategy    string
	Shards      int
}

// ConfigInit accumulates configuration entries during Gate.Init.
type ConfigInit interface {
	// SetDefault registers the default database of the default group.
	SetDefault(dbType, dsn string)
	AddDataSource(group string, ds DataSource)
	AddEntityRule(rule EntityRule)
	// SetAssemblyNames restricts entity discovery to matching assemblies.
	SetAssemblyNames(names ...string)
	// SetBootstrapHook registers a callback run once when the process
	// bootstraps.
	SetBootstrapHook(hook Hook)
	SetMinCommandElapsed(d time.Duration)
}

// Hook is a startup callback registered during configuration.
type Hook func(ctx context.Context) error

// Provider is the frozen configuration published by Gate.Init.
type Provider interface {
	DefaultDataSource() (DataSource, bool)
	Groups() []string
	DataSources(group string) []DataSource
	EntityRule(entity string) (EntityRule, bool)
	EntityRules() []EntityRule
	PhysicalTables(entity string) ([]string, error)
	BootstrapHook() Hook
	// MinCommandElapsed reports the command logging threshold and whether
	// one was configured.
	MinCommandElapsed() (time.Duration, bool)
}

type memoryProvider struct {
	groups        map[string][]DataSource
	rules         map[string]EntityRule
	ruleOrder     []string
	assemblyNames []string
	hook          Hook
	minElapsed    *time.Duration
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{
		groups: make(map[string][]DataSource),
		rules:  make(map[string]EntityRule),
	}
}

func (m *memoryProvider) SetDefault(dbType, dsn string) {
	m.AddDataSource(config.DefaultDbGroupName, DataSource{
		Name: config.DefaultAbsDbName,
		Type: dbType,
		DSN:  dsn,
		Role: "readwrite",
	})
}

func (m *memoryProvider) AddDataSource(group string, ds DataSource) {
	if group == "" {
		group = config.DefaultDbGroupName
	}
	if ds.Role == "" {
		ds.Role = "readwrite"
	}
	m.groups[group] = append(m.groups[group], ds)
}

func (m *memoryProvider) AddEntityRule(rule EntityRule) {
	if rule.Group == "" {
		rule.Group = config.DefaultDbGroupName
	}
	if rule.Table == "" {
		rule.Table = rule.Entity
	}
	if rule.Strategy == "" {
		rule.Strategy = "none"
	}
	if _, exists := m.rules[rule.Entity]; !exists {
		m.ruleOrder = append(m.ruleOrder, rule.Entity)
	}
	m.rules[rule.Entity] = rule
}

func (m *memoryProvider) SetAssemblyNames(names ...string) {
	m.assemblyNames = append([]string{}, names...)
}

func (m *memoryProvider) SetBootstrapHook(hook Hook) {
	m.hook = hook
}

func (m *memoryProvider) SetMinCommandElapsed(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.minElapsed = &d
}

// freeze copies the accumulated state so later writes to the sink are not
// visible through the published Provider.
func (m *memoryProvider) freeze() *memoryProvider {
	frozen := newMemoryProvider()
	for group, sources := range m.groups {
		frozen.groups[group] = append([]DataSource(nil), sources...)
	}
	for entity, rule := range m.rules {
		frozen.rules[entity] = rule
	}
	frozen.ruleOrder = append([]string(nil), m.ruleOrder...)
	frozen.hook = m.hook
	if m.minElapsed != nil {
		d := *m.minElapsed
		frozen.minElapsed = &d
	}
	return frozen
}

func (m *memoryProvider) DefaultDataSource() (DataSource, bool) {
	sources := m.groups[config.DefaultDbGroupName]
	for _, ds := range sources {
		if ds.Name == config.DefaultAbsDbName {
			return ds, true
		}
	}
	if len(sources) > 0 {
		return sources[0], true
	}
	return DataSource{}, false
}

func (m *memoryProvider) Groups() []string {
	groups := make([]string, 0, len(m.groups))
	for group := range m.groups {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

func (m *memoryProvider) DataSources(group string) []DataSource {
	return append([]DataSource(nil), m.groups[group]...)
}

func (m *memoryProvider) EntityRule(entity string) (EntityRule, bool) {
	rule, ok := m.rules[entity]
	return rule, ok
}

func (m *memoryProvider) EntityRules() []EntityRule {
	rules := make([]EntityRule, 0, len(m.ruleOrder))
	for _, entity := range m.ruleOrder {
		rules = append(rules, m.rules[entity])
	}
	return rules
}

func (m *memoryProvider) BootstrapHook() Hook {
	return m.hook
}

func (m *memoryProvider) MinCommandElapsed() (time.Duration, bool) {
	if m.minElapsed == nil {
		return 0, false
	}
	return *m.minElapsed, true
}

// PhysicalTables lists the tables backing an entity: one per shard for the
// mod strategy, the logical table otherwise.
func (m *memoryProvider) PhysicalTables(entity string) ([]string, error) {
	rule, ok := m.rules[entity]
	if !ok {
		return nil, fmt.Errorf("no sharding rule for entity %q", entity)
	}
	if rule.Strategy != "mod" || rule.Shards <= 0 {
		if !sqlutil.IsValidIdentifier(rule.Table) {
			return nil, &sqlutil.InvalidIdentifierError{Name: rule.Table}
		}
		return []string{rule.Table}, nil
	}

	tables := make([]string, 0, rule.Shards)
	for i := 0; i < rule.Shards; i++ {
		name, err := sqlutil.ShardTableName(rule.Table, i)
		if err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// InitFromConfig initializes the gate from a loaded configuration file.
func InitFromConfig(g *Gate, cfg *config.Config) error {
	return g.Init(func(ci ConfigInit) error {
		for _, ds := range cfg.DataSources {
			dsn, err := ds.ConnectionString()
			if err != nil {
				return fmt.Errorf("data source %q: %w", ds.Name, err)
			}
			ci.AddDataSource(ds.GroupName(), DataSource{
				Name:               ds.Name,
				Type:               ds.Type,
				DSN:                dsn,
				Role:               ds.Role,
				MaxConnections:     ds.MaxConnections,
				MaxIdleConnections: ds.MaxIdleConnections,
			})
		}
		for _, er := range cfg.Entities {
			ci.AddEntityRule(EntityRule{
				Entity:      er.Entity,
				Table:       er.Table,
				Group:       er.GroupName(),
				ShardColumn: er.ShardColumn,
				Strategy:    er.Strategy,
				Shards:      er.Shards,
			})
		}
		if len(cfg.Sharding.AssemblyNames) > 0 {
			ci.SetAssemblyNames(cfg.Sharding.AssemblyNames...)
		}
		ci.SetMinCommandElapsed(cfg.Sharding.MinCommandElapsed())
		return nil
	})
}
