package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registry is the canonical store for every entity category. It enforces
// natural-key uniqueness, validates enumeration values before persistence,
// and nulls weak references when a referenced entity is deleted.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a new Registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// AutoMigrate creates or updates every entity table.
func (r *Registry) AutoMigrate() error {
	models := []any{
		&Team{}, &BusinessService{}, &Environment{}, &Location{},
		&Identity{}, &Group{}, &Asset{},
	}
	for _, m := range models {
		if err := r.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("auto-migrate entity tables: %w", err)
		}
	}
	return nil
}

// DB exposes the underlying handle for components that share the store.
func (r *Registry) DB() *gorm.DB { return r.db }

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func getByID[T any](db *gorm.DB, id string) (*T, error) {
	var out T
	err := db.Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return &out, nil
}

// ListOptions are the common list parameters shared by every category.
// OrderBy is checked against the category's sortable columns; unknown keys
// fall back to the category default.
type ListOptions struct {
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

func applyOrder(q *gorm.DB, orderBy string, desc bool, allowed []string, fallback string) *gorm.DB {
	col := fallback
	for _, a := range allowed {
		if orderBy == a {
			col = orderBy
			break
		}
	}
	if desc {
		col += " DESC"
	}
	return q.Order(col)
}

func applyPage(q *gorm.DB, opts ListOptions) *gorm.DB {
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// ---------------------------------------------------------------------------
// Teams

// CreateTeam stores a new team. Team names are globally unique.
func (r *Registry) CreateTeam(t *Team) error {
	ensureID(&t.ID)
	if t.Criticality == "" {
		t.Criticality = CriticalityUnknown
	}
	if !t.Criticality.IsValid() {
		return &InvalidEnumValue{Field: "criticality", Value: string(t.Criticality)}
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Team{}).Where("name = ?", t.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check team name: %w", err)
		}
		if n > 0 {
			return &UniquenessViolation{Type: TypeTeam, Key: t.Name}
		}
		if err := tx.Create(t).Error; err != nil {
			if isDuplicate(err) {
				return &UniquenessViolation{Type: TypeTeam, Key: t.Name}
			}
			return fmt.Errorf("create team: %w", err)
		}
		return nil
	})
}

// GetTeam retrieves a team by id.
func (r *Registry) GetTeam(id string) (*Team, error) {
	return getByID[Team](r.db, id)
}

// UpdateTeam saves changes to an existing team.
func (r *Registry) UpdateTeam(t *Team) error {
	if !t.Criticality.IsValid() {
		return &InvalidEnumValue{Field: "criticality", Value: string(t.Criticality)}
	}
	if err := r.db.Save(t).Error; err != nil {
		if isDuplicate(err) {
			return &UniquenessViolation{Type: TypeTeam, Key: t.Name}
		}
		return fmt.Errorf("update team: %w", err)
	}
	return nil
}

// DeleteTeam removes a team and clears every weak reference pointing at it.
// Referencing entities are kept.
func (r *Registry) DeleteTeam(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		clears := []struct {
			model any
			col   string
		}{
			{&Team{}, "parent_team_id"},
			{&BusinessService{}, "owner_team_id"},
			{&Environment{}, "owner_team_id"},
			{&Location{}, "owner_team_id"},
			{&Identity{}, "owner_team_id"},
			{&Group{}, "owner_team_id"},
			{&Asset{}, "owner_team_id"},
		}
		for _, c := range clears {
			if err := tx.Model(c.model).Where(c.col+" = ?", id).
				Update(c.col, nil).Error; err != nil {
				return fmt.Errorf("clear %s: %w", c.col, err)
			}
		}
		return tx.Where("id = ?", id).Delete(&Team{}).Error
	})
}

// TeamListFilter narrows ListTeams results.
type TeamListFilter struct {
	Name        *string
	Criticality *Criticality
	ParentID    *string
	ListOptions
}

// ListTeams returns teams matching the filter, ordered by the requested key.
func (r *Registry) ListTeams(f TeamListFilter) ([]Team, error) {
	q := r.db.Model(&Team{})
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	if f.Criticality != nil {
		q = q.Where("criticality = ?", *f.Criticality)
	}
	if f.ParentID != nil {
		q = q.Where("parent_team_id = ?", *f.ParentID)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"name", "criticality", "created_at", "updated_at"}, "name")
	q = applyPage(q, f.ListOptions)
	var out []Team
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Business services

// CreateBusinessService stores a new business service. Names are unique.
func (r *Registry) CreateBusinessService(b *BusinessService) error {
	ensureID(&b.ID)
	if b.Criticality == "" {
		b.Criticality = CriticalityUnknown
	}
	if !b.Criticality.IsValid() {
		return &InvalidEnumValue{Field: "criticality", Value: string(b.Criticality)}
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&BusinessService{}).Where("name = ?", b.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check business service name: %w", err)
		}
		if n > 0 {
			return &UniquenessViolation{Type: TypeBusinessService, Key: b.Name}
		}
		if err := tx.Create(b).Error; err != nil {
			if isDuplicate(err) {
				return &UniquenessViolation{Type: TypeBusinessService, Key: b.Name}
			}
			return fmt.Errorf("create business service: %w", err)
		}
		return nil
	})
}

// GetBusinessService retrieves a business service by id.
func (r *Registry) GetBusinessService(id string) (*BusinessService, error) {
	return getByID[BusinessService](r.db, id)
}

// UpdateBusinessService saves changes to an existing business service.
func (r *Registry) UpdateBusinessService(b *BusinessService) error {
	if !b.Criticality.IsValid() {
		return &InvalidEnumValue{Field: "criticality", Value: string(b.Criticality)}
	}
	if err := r.db.Save(b).Error; err != nil {
		if isDuplicate(err) {
			return &UniquenessViolation{Type: TypeBusinessService, Key: b.Name}
		}
		return fmt.Errorf("update business service: %w", err)
	}
	return nil
}

// DeleteBusinessService removes a business service and clears asset links.
func (r *Registry) DeleteBusinessService(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Asset{}).Where("business_service_id = ?", id).
			Update("business_service_id", nil).Error; err != nil {
			return fmt.Errorf("clear business_service_id: %w", err)
		}
		return tx.Where("id = ?", id).Delete(&BusinessService{}).Error
	})
}

// BusinessServiceListFilter narrows ListBusinessServices results.
type BusinessServiceListFilter struct {
	Name        *string
	Criticality *Criticality
	OwnerTeamID *string
	ListOptions
}

// ListBusinessServices returns business services matching the filter.
func (r *Registry) ListBusinessServices(f BusinessServiceListFilter) ([]BusinessService, error) {
	q := r.db.Model(&BusinessService{})
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	if f.Criticality != nil {
		q = q.Where("criticality = ?", *f.Criticality)
	}
	if f.OwnerTeamID != nil {
		q = q.Where("owner_team_id = ?", *f.OwnerTeamID)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"name", "criticality", "created_at", "updated_at"}, "name")
	q = applyPage(q, f.ListOptions)
	var out []BusinessService
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list business services: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Environments

func (r *Registry) validateEnvironment(e *Environment) error {
	if e.Criticality == "" {
		e.Criticality = CriticalityUnknown
	}
	if e.LifecycleState == "" {
		e.LifecycleState = LifecycleActive
	}
	if e.SourceOfTruth == "" {
		e.SourceOfTruth = SourceManual
	}
	if !e.Criticality.IsValid() {
		return &InvalidEnumValue{Field: "criticality", Value: string(e.Criticality)}
	}
	if !e.LifecycleState.IsValid() {
		return &InvalidEnumValue{Field: "lifecycle_state", Value: string(e.LifecycleState)}
	}
	if !e.SourceOfTruth.IsValid() {
		return &InvalidEnumValue{Field: "source_of_truth", Value: string(e.SourceOfTruth)}
	}
	return nil
}

// CreateEnvironment stores a new environment, unique by (type, name).
func (r *Registry) CreateEnvironment(e *Environment) error {
	ensureID(&e.ID)
	if err := r.validateEnvironment(e); err != nil {
		return err
	}
	key := e.Type + "/" + e.Name
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Environment{}).Where("type = ? AND name = ?", e.Type, e.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check environment key: %w", err)
		}
		if n > 0 {
			return &UniquenessViolation{Type: TypeEnvironment, Key: key}
		}
		if err := tx.Create(e).Error; err != nil {
			if isDuplicate(err) {
				return &UniquenessViolation{Type: TypeEnvironment, Key: key}
			}
			return fmt.Errorf("create environment: %w", err)
		}
		return nil
	})
}

// GetEnvironment retrieves an environment by id.
func (r *Registry) GetEnvironment(id string) (*Environment, error) {
	return getByID[Environment](r.db, id)
}

// GetEnvironmentByKey retrieves an environment by its (type, name) natural key.
func (r *Registry) GetEnvironmentByKey(envType, name string) (*Environment, error) {
	var out Environment
	err := r.db.Where("type = ? AND name = ?", envType, name).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get environment by key: %w", err)
	}
	return &out, nil
}

// UpdateEnvironment saves changes to an existing environment.
func (r *Registry) UpdateEnvironment(e *Environment) error {
	if err := r.validateEnvironment(e); err != nil {
		return err
	}
	if err := r.db.Save(e).Error; err != nil {
		if isDuplicate(err) {
			return &UniquenessViolation{Type: TypeEnvironment, Key: e.Type + "/" + e.Name}
		}
		return fmt.Errorf("update environment: %w", err)
	}
	return nil
}

// DeleteEnvironment removes an environment and clears weak references from
// assets and child environments.
func (r *Registry) DeleteEnvironment(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Asset{}).Where("environment_id = ?", id).
			Update("environment_id", nil).Error; err != nil {
			return fmt.Errorf("clear environment_id: %w", err)
		}
		if err := tx.Model(&Environment{}).Where("parent_environment_id = ?", id).
			Update("parent_environment_id", nil).Error; err != nil {
			return fmt.Errorf("clear parent_environment_id: %w", err)
		}
		return tx.Where("id = ?", id).Delete(&Environment{}).Error
	})
}

// EnvironmentListFilter narrows ListEnvironments results.
type EnvironmentListFilter struct {
	Type           *string
	Name           *string
	Criticality    *Criticality
	LifecycleState *LifecycleState
	OwnerTeamID    *string
	ListOptions
}

// ListEnvironments returns environments matching the filter.
func (r *Registry) ListEnvironments(f EnvironmentListFilter) ([]Environment, error) {
	q := r.db.Model(&Environment{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	if f.Criticality != nil {
		q = q.Where("criticality = ?", *f.Criticality)
	}
	if f.LifecycleState != nil {
		q = q.Where("lifecycle_state = ?", *f.LifecycleState)
	}
	if f.OwnerTeamID != nil {
		q = q.Where("owner_team_id = ?", *f.OwnerTeamID)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"type", "name", "criticality", "lifecycle_state", "created_at", "updated_at"}, "name")
	q = applyPage(q, f.ListOptions)
	var out []Environment
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Locations

func (r *Registry) validateLocation(l *Location) error {
	if l.Tier == "" {
		l.Tier = CriticalityUnknown
	}
	if l.LifecycleState == "" {
		l.LifecycleState = LifecycleActive
	}
	if !l.Type.IsValid() {
		return &InvalidEnumValue{Field: "type", Value: string(l.Type)}
	}
	if !l.Tier.IsValid() {
		return &InvalidEnumValue{Field: "tier", Value: string(l.Tier)}
	}
	if !l.LifecycleState.IsValid() {
		return &InvalidEnumValue{Field: "lifecycle_state", Value: string(l.LifecycleState)}
	}
	return nil
}

// CreateLocation stores a new location, unique by (type, name).
func (r *Registry) CreateLocation(l *Location) error {
	ensureID(&l.ID)
	if err := r.validateLocation(l); err != nil {
		return err
	}
	key := string(l.Type) + "/" + l.Name
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Location{}).Where("type = ? AND name = ?", l.Type, l.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check location key: %w", err)
		}
		if n > 0 {
			return &UniquenessViolation{Type: TypeLocation, Key: key}
		}
		if err := tx.Create(l).Error; err != nil {
			if isDuplicate(err) {
				return &UniquenessViolation{Type: TypeLocation, Key: key}
			}
			return fmt.Errorf("create location: %w", err)
		}
		return nil
	})
}

// GetLocation retrieves a location by id.
func (r *Registry) GetLocation(id string) (*Location, error) {
	return getByID[Location](r.db, id)
}

// UpdateLocation saves changes to an existing location.
func (r *Registry) UpdateLocation(l *Location) error {
	if err := r.validateLocation(l); err != nil {
		return err
	}
	if err := r.db.Save(l).Error; err != nil {
		if isDuplicate(err) {
			return &UniquenessViolation{Type: TypeLocation, Key: string(l.Type) + "/" + l.Name}
		}
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location and clears asset references to it.
func (r *Registry) DeleteLocation(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Asset{}).Where("location_id = ?", id).
			Update("location_id", nil).Error; err != nil {
			return fmt.Errorf("clear location_id: %w", err)
		}
		return tx.Where("id = ?", id).Delete(&Location{}).Error
	})
}

// LocationListFilter narrows ListLocations results.
type LocationListFilter struct {
	Type           *LocationType
	Name           *string
	Tier           *Criticality
	LifecycleState *LifecycleState
	ListOptions
}

// ListLocations returns locations matching the filter.
func (r *Registry) ListLocations(f LocationListFilter) ([]Location, error) {
	q := r.db.Model(&Location{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	if f.Tier != nil {
		q = q.Where("tier = ?", *f.Tier)
	}
	if f.LifecycleState != nil {
		q = q.Where("lifecycle_state = ?", *f.LifecycleState)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"type", "name", "tier", "created_at", "updated_at"}, "name")
	q = applyPage(q, f.ListOptions)
	var out []Location
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Identities

func (r *Registry) validateIdentity(i *Identity) error {
	if i.Type == "" {
		i.Type = IdentityHuman
	}
	if i.Status == "" {
		i.Status = IdentityActive
	}
	if i.LifecycleState == "" {
		i.LifecycleState = LifecycleActive
	}
	if i.SourceOfTruth == "" {
		i.SourceOfTruth = SourceManual
	}
	if !i.Type.IsValid() {
		return &InvalidEnumValue{Field: "type", Value: string(i.Type)}
	}
	if !i.Status.IsValid() {
		return &InvalidEnumValue{Field: "status", Value: string(i.Status)}
	}
	if !i.LifecycleState.IsValid() {
		return &InvalidEnumValue{Field: "lifecycle_state", Value: string(i.LifecycleState)}
	}
	if !i.SourceOfTruth.IsValid() {
		return &InvalidEnumValue{Field: "source_of_truth", Value: string(i.SourceOfTruth)}
	}
	return nil
}

// CreateIdentity stores a new identity. Identities have no natural key;
// correlation across sources happens through external ids.
func (r *Registry) CreateIdentity(i *Identity) error {
	ensureID(&i.ID)
	if err := r.validateIdentity(i); err != nil {
		return err
	}
	if err := r.db.Create(i).Error; err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

// GetIdentity retrieves an identity by id.
func (r *Registry) GetIdentity(id string) (*Identity, error) {
	return getByID[Identity](r.db, id)
}

// GetIdentityByUsername retrieves an identity by username.
func (r *Registry) GetIdentityByUsername(username string) (*Identity, error) {
	var out Identity
	err := r.db.Where("username = ?", username).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity by username: %w", err)
	}
	return &out, nil
}

// UpdateIdentity saves changes to an existing identity.
func (r *Registry) UpdateIdentity(i *Identity) error {
	if err := r.validateIdentity(i); err != nil {
		return err
	}
	if err := r.db.Save(i).Error; err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes an identity, clears manager and asset-owner
// references, and removes its group memberships.
func (r *Registry) DeleteIdentity(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Identity{}).Where("manager_identity_id = ?", id).
			Update("manager_identity_id", nil).Error; err != nil {
			return fmt.Errorf("clear manager_identity_id: %w", err)
		}
		if err := tx.Model(&Asset{}).Where("owner_identity_id = ?", id).
			Update("owner_identity_id", nil).Error; err != nil {
			return fmt.Errorf("clear owner_identity_id: %w", err)
		}
		if err := tx.Exec("DELETE FROM group_members WHERE identity_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear group memberships: %w", err)
		}
		return tx.Where("id = ?", id).Delete(&Identity{}).Error
	})
}

// IdentityListFilter narrows ListIdentities results.
type IdentityListFilter struct {
	Type           *IdentityType
	Username       *string
	Email          *string
	Status         *IdentityStatus
	LifecycleState *LifecycleState
	OwnerTeamID    *string
	ListOptions
}

// ListIdentities returns identities matching the filter.
func (r *Registry) ListIdentities(f IdentityListFilter) ([]Identity, error) {
	q := r.db.Model(&Identity{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Username != nil {
		q = q.Where("username = ?", *f.Username)
	}
	if f.Email != nil {
		q = q.Where("email = ?", *f.Email)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.LifecycleState != nil {
		q = q.Where("lifecycle_state = ?", *f.LifecycleState)
	}
	if f.OwnerTeamID != nil {
		q = q.Where("owner_team_id = ?", *f.OwnerTeamID)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"username", "email", "status", "type", "created_at", "updated_at"}, "username")
	q = applyPage(q, f.ListOptions)
	var out []Identity
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Groups

func (r *Registry) validateGroup(g *Group) error {
	if g.Type == "" {
		g.Type = GroupOther
	}
	if g.LifecycleState == "" {
		g.LifecycleState = LifecycleActive
	}
	if g.SourceOfTruth == "" {
		g.SourceOfTruth = SourceManual
	}
	if !g.Type.IsValid() {
		return &InvalidEnumValue{Field: "type", Value: string(g.Type)}
	}
	if !g.LifecycleState.IsValid() {
		return &InvalidEnumValue{Field: "lifecycle_state", Value: string(g.LifecycleState)}
	}
	if !g.SourceOfTruth.IsValid() {
		return &InvalidEnumValue{Field: "source_of_truth", Value: string(g.SourceOfTruth)}
	}
	return nil
}

// CreateGroup stores a new group, unique by (type, name).
func (r *Registry) CreateGroup(g *Group) error {
	ensureID(&g.ID)
	if err := r.validateGroup(g); err != nil {
		return err
	}
	key := string(g.Type) + "/" + g.Name
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Group{}).Where("type = ? AND name = ?", g.Type, g.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check group key: %w", err)
		}
		if n > 0 {
			return &UniquenessViolation{Type: TypeGroup, Key: key}
		}
		if err := tx.Create(g).Error; err != nil {
			if isDuplicate(err) {
				return &UniquenessViolation{Type: TypeGroup, Key: key}
			}
			return fmt.Errorf("create group: %w", err)
		}
		return nil
	})
}

// GetGroup retrieves a group by id, including its member set.
func (r *Registry) GetGroup(id string) (*Group, error) {
	var out Group
	err := r.db.Preload("Members").Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &out, nil
}

// GetGroupByKey retrieves a group by its (type, name) natural key.
func (r *Registry) GetGroupByKey(groupType GroupType, name string) (*Group, error) {
	var out Group
	err := r.db.Where("type = ? AND name = ?", groupType, name).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group by key: %w", err)
	}
	return &out, nil
}

// UpdateGroup saves changes to an existing group. Membership is managed
// separately through AddGroupMember and RemoveGroupMember.
func (r *Registry) UpdateGroup(g *Group) error {
	if err := r.validateGroup(g); err != nil {
		return err
	}
	if err := r.db.Omit("Members").Save(g).Error; err != nil {
		if isDuplicate(err) {
			return &UniquenessViolation{Type: TypeGroup, Key: string(g.Type) + "/" + g.Name}
		}
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// AddGroupMember links an identity into a group. Adding twice is a no-op.
func (r *Registry) AddGroupMember(groupID, identityID string) error {
	g := Group{ID: groupID}
	if err := r.db.Model(&g).Omit("Members.*").
		Association("Members").Append(&Identity{ID: identityID}); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveGroupMember unlinks an identity from a group.
func (r *Registry) RemoveGroupMember(groupID, identityID string) error {
	g := Group{ID: groupID}
	if err := r.db.Model(&g).Association("Members").Delete(&Identity{ID: identityID}); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

// DeleteGroup removes a group and its membership rows.
func (r *Registry) DeleteGroup(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM group_members WHERE group_id = ?", id).Error; err != nil {
			return fmt.Errorf("clear group memberships: %w", err)
		}
		return tx.Where("id = ?", id).Delete(&Group{}).Error
	})
}

// GroupListFilter narrows ListGroups results.
type GroupListFilter struct {
	Type           *GroupType
	Name           *string
	LifecycleState *LifecycleState
	OwnerTeamID    *string
	ListOptions
}

// ListGroups returns groups matching the filter.
func (r *Registry) ListGroups(f GroupListFilter) ([]Group, error) {
	q := r.db.Model(&Group{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	if f.LifecycleState != nil {
		q = q.Where("lifecycle_state = ?", *f.LifecycleState)
	}
	if f.OwnerTeamID != nil {
		q = q.Where("owner_team_id = ?", *f.OwnerTeamID)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"type", "name", "created_at", "updated_at"}, "name")
	q = applyPage(q, f.ListOptions)
	var out []Group
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Assets

func (r *Registry) validateAsset(a *Asset) error {
	if a.Type == "" {
		a.Type = AssetOther
	}
	if a.Criticality == "" {
		a.Criticality = CriticalityUnknown
	}
	if a.DataClassification == "" {
		a.DataClassification = DataUnknown
	}
	if a.LifecycleState == "" {
		a.LifecycleState = LifecycleActive
	}
	if a.SourceOfTruth == "" {
		a.SourceOfTruth = SourceManual
	}
	if !a.Type.IsValid() {
		return &InvalidEnumValue{Field: "type", Value: string(a.Type)}
	}
	if !a.Criticality.IsValid() {
		return &InvalidEnumValue{Field: "criticality", Value: string(a.Criticality)}
	}
	if !a.DataClassification.IsValid() {
		return &InvalidEnumValue{Field: "data_classification", Value: string(a.DataClassification)}
	}
	if !a.LifecycleState.IsValid() {
		return &InvalidEnumValue{Field: "lifecycle_state", Value: string(a.LifecycleState)}
	}
	if !a.SourceOfTruth.IsValid() {
		return &InvalidEnumValue{Field: "source_of_truth", Value: string(a.SourceOfTruth)}
	}
	return nil
}

// CreateAsset stores a new asset, unique by (type, name).
func (r *Registry) CreateAsset(a *Asset) error {
	ensureID(&a.ID)
	if err := r.validateAsset(a); err != nil {
		return err
	}
	key := string(a.Type) + "/" + a.Name
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Asset{}).Where("type = ? AND name = ?", a.Type, a.Name).Count(&n).Error; err != nil {
			return fmt.Errorf("check asset key: %w", err)
		}
		if n > 0 {
			return &UniquenessViolation{Type: TypeAsset, Key: key}
		}
		if err := tx.Create(a).Error; err != nil {
			if isDuplicate(err) {
				return &UniquenessViolation{Type: TypeAsset, Key: key}
			}
			return fmt.Errorf("create asset: %w", err)
		}
		return nil
	})
}

// GetAsset retrieves an asset by id.
func (r *Registry) GetAsset(id string) (*Asset, error) {
	return getByID[Asset](r.db, id)
}

// GetAssetByKey retrieves an asset by its (type, name) natural key.
func (r *Registry) GetAssetByKey(assetType AssetType, name string) (*Asset, error) {
	var out Asset
	err := r.db.Where("type = ? AND name = ?", assetType, name).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset by key: %w", err)
	}
	return &out, nil
}

// UpdateAsset saves changes to an existing asset.
func (r *Registry) UpdateAsset(a *Asset) error {
	if err := r.validateAsset(a); err != nil {
		return err
	}
	if err := r.db.Save(a).Error; err != nil {
		if isDuplicate(err) {
			return &UniquenessViolation{Type: TypeAsset, Key: string(a.Type) + "/" + a.Name}
		}
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// DeleteAsset removes an asset.
func (r *Registry) DeleteAsset(id string) error {
	return r.db.Where("id = ?", id).Delete(&Asset{}).Error
}

// AssetListFilter narrows ListAssets results.
type AssetListFilter struct {
	Type               *AssetType
	Name               *string
	Criticality        *Criticality
	DataClassification *DataClassification
	LifecycleState     *LifecycleState
	OwnerTeamID        *string
	EnvironmentID      *string
	LocationID         *string
	ListOptions
}

// ListAssets returns assets matching the filter.
func (r *Registry) ListAssets(f AssetListFilter) ([]Asset, error) {
	q := r.db.Model(&Asset{})
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Name != nil {
		q = q.Where("name = ?", *f.Name)
	}
	if f.Criticality != nil {
		q = q.Where("criticality = ?", *f.Criticality)
	}
	if f.DataClassification != nil {
		q = q.Where("data_classification = ?", *f.DataClassification)
	}
	if f.LifecycleState != nil {
		q = q.Where("lifecycle_state = ?", *f.LifecycleState)
	}
	if f.OwnerTeamID != nil {
		q = q.Where("owner_team_id = ?", *f.OwnerTeamID)
	}
	if f.EnvironmentID != nil {
		q = q.Where("environment_id = ?", *f.EnvironmentID)
	}
	if f.LocationID != nil {
		q = q.Where("location_id = ?", *f.LocationID)
	}
	q = applyOrder(q, f.OrderBy, f.Desc, []string{"type", "name", "criticality", "lifecycle_state", "created_at", "updated_at"}, "name")
	q = applyPage(q, f.ListOptions)
	var out []Asset
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return out, nil
}

// Exists reports whether an entity of the given category and id is present.
// It backs application-level referential checks for the relationship graph.
func (r *Registry) Exists(ref Ref) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	var n int64
	var q *gorm.DB
	switch ref.Type {
	case TypeTeam:
		q = r.db.Model(&Team{})
	case TypeBusinessService:
		q = r.db.Model(&BusinessService{})
	case TypeEnvironment:
		q = r.db.Model(&Environment{})
	case TypeLocation:
		q = r.db.Model(&Location{})
	case TypeIdentity:
		q = r.db.Model(&Identity{})
	case TypeGroup:
		q = r.db.Model(&Group{})
	case TypeAsset:
		q = r.db.Model(&Asset{})
	default:
		return false, &InvalidEnumValue{Field: "entity_type", Value: string(ref.Type)}
	}
	if err := q.Where("id = ?", ref.ID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check existence of %s: %w", ref, err)
	}
	return n > 0, nil
}
