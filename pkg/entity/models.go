package entity

import (
	"time"
)

// Team is an organizational unit that can own other entities.
type Team struct {
	ID           string      `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name         string      `gorm:"column:name;uniqueIndex:idx_team_name;not null"`
	Description  string      `gorm:"column:description"`
	ParentTeamID *string     `gorm:"column:parent_team_id;type:varchar(36);index"`
	Criticality  Criticality `gorm:"column:criticality;default:unknown"`
	CreatedAt    time.Time   `gorm:"column:created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Team) TableName() string { return "teams" }

// Ref returns the generic reference for this team.
func (t *Team) Ref() Ref { return Ref{Type: TypeTeam, ID: t.ID} }

// BusinessService is a business capability that assets support.
type BusinessService struct {
	ID          string      `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name        string      `gorm:"column:name;uniqueIndex:idx_bsvc_name;not null"`
	Description string      `gorm:"column:description"`
	OwnerTeamID *string     `gorm:"column:owner_team_id;type:varchar(36);index"`
	Criticality Criticality `gorm:"column:criticality;default:unknown"`
	CreatedAt   time.Time   `gorm:"column:created_at"`
	UpdatedAt   time.Time   `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (BusinessService) TableName() string { return "business_services" }

// Ref returns the generic reference for this business service.
func (b *BusinessService) Ref() Ref { return Ref{Type: TypeBusinessService, ID: b.ID} }

// Environment is a deployment boundary: an AWS account, Azure subscription,
// GCP project, Kubernetes cluster, on-prem zone, and so on. The Type field is
// free-form by contract.
type Environment struct {
	ID                  string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	Type                string         `gorm:"column:type;uniqueIndex:idx_env_type_name,priority:1;index;not null"`
	Name                string         `gorm:"column:name;uniqueIndex:idx_env_type_name,priority:2;index;not null"`
	Description         string         `gorm:"column:description"`
	ParentEnvironmentID *string        `gorm:"column:parent_environment_id;type:varchar(36);index"`
	Region              string         `gorm:"column:region"`
	NetworkZone         string         `gorm:"column:network_zone"`
	OwnerTeamID         *string        `gorm:"column:owner_team_id;type:varchar(36);index"`
	Criticality         Criticality    `gorm:"column:criticality;default:unknown"`
	LifecycleState      LifecycleState `gorm:"column:lifecycle_state;default:active"`
	FirstSeenAt         *time.Time     `gorm:"column:first_seen_at"`
	LastSeenAt          *time.Time     `gorm:"column:last_seen_at"`
	SourceOfTruth       SourceSystem   `gorm:"column:source_of_truth;default:manual"`
	CreatedAt           time.Time      `gorm:"column:created_at"`
	UpdatedAt           time.Time      `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Environment) TableName() string { return "environments" }

// Ref returns the generic reference for this environment.
func (e *Environment) Ref() Ref { return Ref{Type: TypeEnvironment, ID: e.ID} }

// Location is a physical or logical place assets live: office, datacenter,
// cloud region.
type Location struct {
	ID             string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	Type           LocationType   `gorm:"column:type;uniqueIndex:idx_loc_type_name,priority:1;not null"`
	Name           string         `gorm:"column:name;uniqueIndex:idx_loc_type_name,priority:2;not null"`
	Description    string         `gorm:"column:description"`
	Address        string         `gorm:"column:address"`
	City           string         `gorm:"column:city"`
	StateRegion    string         `gorm:"column:state_region"`
	Country        string         `gorm:"column:country"`
	Tier           Criticality    `gorm:"column:tier;default:unknown"`
	OwnerTeamID    *string        `gorm:"column:owner_team_id;type:varchar(36);index"`
	LifecycleState LifecycleState `gorm:"column:lifecycle_state;default:active"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Location) TableName() string { return "locations" }

// Ref returns the generic reference for this location.
func (l *Location) Ref() Ref { return Ref{Type: TypeLocation, ID: l.ID} }

// Identity is a human or machine account known to one or more auth sources.
type Identity struct {
	ID                string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	Type              IdentityType    `gorm:"column:type;default:human"`
	Username          string          `gorm:"column:username;index"`
	DisplayName       string          `gorm:"column:display_name"`
	Email             string          `gorm:"column:email;index"`
	OrgUnit           string          `gorm:"column:org_unit"`
	ManagerIdentityID *string         `gorm:"column:manager_identity_id;type:varchar(36);index"`
	Status            IdentityStatus  `gorm:"column:status;index;default:active"`
	AuthSources       JSONStringSlice `gorm:"column:auth_sources;type:text"`
	LastLoginAt       *time.Time      `gorm:"column:last_login_at"`
	OwnerTeamID       *string         `gorm:"column:owner_team_id;type:varchar(36);index"`
	LifecycleState    LifecycleState  `gorm:"column:lifecycle_state;default:active"`
	RiskFlags         JSONStringSlice `gorm:"column:risk_flags;type:text"`
	FirstSeenAt       *time.Time      `gorm:"column:first_seen_at"`
	LastSeenAt        *time.Time      `gorm:"column:last_seen_at"`
	SourceOfTruth     SourceSystem    `gorm:"column:source_of_truth;default:manual"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Identity) TableName() string { return "identities" }

// Ref returns the generic reference for this identity.
func (i *Identity) Ref() Ref { return Ref{Type: TypeIdentity, ID: i.ID} }

// Group is a collection of identities: an AD group, Okta group, or role.
type Group struct {
	ID             string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	Type           GroupType      `gorm:"column:type;uniqueIndex:idx_group_type_name,priority:1;default:other"`
	Name           string         `gorm:"column:name;uniqueIndex:idx_group_type_name,priority:2;not null"`
	Description    string         `gorm:"column:description"`
	OwnerTeamID    *string        `gorm:"column:owner_team_id;type:varchar(36);index"`
	LifecycleState LifecycleState `gorm:"column:lifecycle_state;default:active"`
	SourceOfTruth  SourceSystem   `gorm:"column:source_of_truth;default:manual"`
	Members        []Identity     `gorm:"many2many:group_members;"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Group) TableName() string { return "groups" }

// Ref returns the generic reference for this group.
func (g *Group) Ref() Ref { return Ref{Type: TypeGroup, ID: g.ID} }

// Asset is anything worth tracking in the CMDB sense: servers, endpoints,
// databases, SaaS apps, repos.
type Asset struct {
	ID                 string             `gorm:"primaryKey;column:id;type:varchar(36)"`
	Type               AssetType          `gorm:"column:type;uniqueIndex:idx_asset_type_name,priority:1;index;default:other"`
	Name               string             `gorm:"column:name;uniqueIndex:idx_asset_type_name,priority:2;index;not null"`
	Description        string             `gorm:"column:description"`
	OwnerIdentityID    *string            `gorm:"column:owner_identity_id;type:varchar(36);index"`
	OwnerTeamID        *string            `gorm:"column:owner_team_id;type:varchar(36);index"`
	BusinessServiceID  *string            `gorm:"column:business_service_id;type:varchar(36);index"`
	LocationID         *string            `gorm:"column:location_id;type:varchar(36);index"`
	EnvironmentID      *string            `gorm:"column:environment_id;type:varchar(36);index"`
	Criticality        Criticality        `gorm:"column:criticality;index;default:unknown"`
	DataClassification DataClassification `gorm:"column:data_classification;default:unknown"`
	LifecycleState     LifecycleState     `gorm:"column:lifecycle_state;default:active"`
	FirstSeenAt        *time.Time         `gorm:"column:first_seen_at"`
	LastSeenAt         *time.Time         `gorm:"column:last_seen_at"`
	SourceOfTruth      SourceSystem       `gorm:"column:source_of_truth;default:manual"`
	CreatedAt          time.Time          `gorm:"column:created_at"`
	UpdatedAt          time.Time          `gorm:"column:updated_at"`
}

// TableName returns the GORM table name.
func (Asset) TableName() string { return "assets" }

// Ref returns the generic reference for this asset.
func (a *Asset) Ref() Ref { return Ref{Type: TypeAsset, ID: a.ID} }

// Lifecycle / SetLifecycle implement HasLifecycle for the categories that
// track a lifecycle state.

func (e *Environment) Lifecycle() LifecycleState     { return e.LifecycleState }
func (e *Environment) SetLifecycle(s LifecycleState) { e.LifecycleState = s }
func (l *Location) Lifecycle() LifecycleState        { return l.LifecycleState }
func (l *Location) SetLifecycle(s LifecycleState)    { l.LifecycleState = s }
func (i *Identity) Lifecycle() LifecycleState        { return i.LifecycleState }
func (i *Identity) SetLifecycle(s LifecycleState)    { i.LifecycleState = s }
func (g *Group) Lifecycle() LifecycleState           { return g.LifecycleState }
func (g *Group) SetLifecycle(s LifecycleState)       { g.LifecycleState = s }
func (a *Asset) Lifecycle() LifecycleState           { return a.LifecycleState }
func (a *Asset) SetLifecycle(s LifecycleState)       { a.LifecycleState = s }

// OwnerTeam / SetOwnerTeam implement HasOwnerTeam.

func derefID(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func idPtr(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func (b *BusinessService) OwnerTeam() string      { return derefID(b.OwnerTeamID) }
func (b *BusinessService) SetOwnerTeam(id string) { b.OwnerTeamID = idPtr(id) }
func (e *Environment) OwnerTeam() string          { return derefID(e.OwnerTeamID) }
func (e *Environment) SetOwnerTeam(id string)     { e.OwnerTeamID = idPtr(id) }
func (l *Location) OwnerTeam() string             { return derefID(l.OwnerTeamID) }
func (l *Location) SetOwnerTeam(id string)        { l.OwnerTeamID = idPtr(id) }
func (i *Identity) OwnerTeam() string             { return derefID(i.OwnerTeamID) }
func (i *Identity) SetOwnerTeam(id string)        { i.OwnerTeamID = idPtr(id) }
func (g *Group) OwnerTeam() string                { return derefID(g.OwnerTeamID) }
func (g *Group) SetOwnerTeam(id string)           { g.OwnerTeamID = idPtr(id) }
func (a *Asset) OwnerTeam() string                { return derefID(a.OwnerTeamID) }
func (a *Asset) SetOwnerTeam(id string)           { a.OwnerTeamID = idPtr(id) }

// SourceOfTruthSystem implements HasSourceOfTruth.

func (e *Environment) SourceOfTruthSystem() SourceSystem { return e.SourceOfTruth }
func (i *Identity) SourceOfTruthSystem() SourceSystem    { return i.SourceOfTruth }
func (g *Group) SourceOfTruthSystem() SourceSystem       { return g.SourceOfTruth }
func (a *Asset) SourceOfTruthSystem() SourceSystem       { return a.SourceOfTruth }
