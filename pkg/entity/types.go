// Package entity defines the canonical asset-intelligence data model: the
// fixed entity categories (teams, business services, environments, locations,
// identities, groups, assets), the enumerations shared across them, and the
// registry that stores them. Enumeration values are storage keys and must
// never be renamed.
package entity

// Type identifies one of the fixed entity categories.
type Type string

const (
	TypeAsset           Type = "asset"
	TypeIdentity        Type = "identity"
	TypeGroup           Type = "group"
	TypeEnvironment     Type = "environment"
	TypeLocation        Type = "location"
	TypeTeam            Type = "team"
	TypeBusinessService Type = "business_service"
)

// Types lists every entity category.
var Types = []Type{
	TypeAsset,
	TypeIdentity,
	TypeGroup,
	TypeEnvironment,
	TypeLocation,
	TypeTeam,
	TypeBusinessService,
}

// IsValid reports whether the type is one of the fixed categories.
func (t Type) IsValid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// SourceSystem identifies an external system of record.
type SourceSystem string

const (
	SourceServiceNow SourceSystem = "servicenow"
	SourceFlexera    SourceSystem = "flexera"
	SourceAD         SourceSystem = "active_directory"
	SourceOkta       SourceSystem = "okta"
	SourceDuo        SourceSystem = "duo"
	SourceAWS        SourceSystem = "aws"
	SourceAzure      SourceSystem = "azure"
	SourceGCP        SourceSystem = "gcp"
	SourceManual     SourceSystem = "manual"
	SourceOther      SourceSystem = "other"
)

// SourceSystems lists every known source system.
var SourceSystems = []SourceSystem{
	SourceServiceNow,
	SourceFlexera,
	SourceAD,
	SourceOkta,
	SourceDuo,
	SourceAWS,
	SourceAzure,
	SourceGCP,
	SourceManual,
	SourceOther,
}

// IsValid reports whether the source system is recognized.
func (s SourceSystem) IsValid() bool {
	for _, v := range SourceSystems {
		if s == v {
			return true
		}
	}
	return false
}

// LifecycleState tracks where an entity sits in its lifecycle. Not every
// category uses every state.
type LifecycleState string

const (
	LifecyclePlanned    LifecycleState = "planned"
	LifecycleActive     LifecycleState = "active"
	LifecycleDeprecated LifecycleState = "deprecated"
	LifecycleRetired    LifecycleState = "retired"
	LifecycleStale      LifecycleState = "stale"
)

// LifecycleStates lists every lifecycle state.
var LifecycleStates = []LifecycleState{
	LifecyclePlanned,
	LifecycleActive,
	LifecycleDeprecated,
	LifecycleRetired,
	LifecycleStale,
}

// IsValid reports whether the lifecycle state is recognized.
func (l LifecycleState) IsValid() bool {
	for _, v := range LifecycleStates {
		if l == v {
			return true
		}
	}
	return false
}

// Criticality is a tier/priority classification.
type Criticality string

const (
	CriticalityTier0   Criticality = "tier0"
	CriticalityTier1   Criticality = "tier1"
	CriticalityTier2   Criticality = "tier2"
	CriticalityTier3   Criticality = "tier3"
	CriticalityHigh    Criticality = "high"
	CriticalityMedium  Criticality = "medium"
	CriticalityLow     Criticality = "low"
	CriticalityUnknown Criticality = "unknown"
)

// Criticalities lists every criticality tier.
var Criticalities = []Criticality{
	CriticalityTier0,
	CriticalityTier1,
	CriticalityTier2,
	CriticalityTier3,
	CriticalityHigh,
	CriticalityMedium,
	CriticalityLow,
	CriticalityUnknown,
}

// IsValid reports whether the criticality is recognized.
func (c Criticality) IsValid() bool {
	for _, v := range Criticalities {
		if c == v {
			return true
		}
	}
	return false
}

// AssetType classifies an asset.
type AssetType string

const (
	AssetEndpoint      AssetType = "endpoint"
	AssetServer        AssetType = "server"
	AssetVM            AssetType = "vm"
	AssetContainer     AssetType = "container"
	AssetDatabase      AssetType = "database"
	AssetSaaSApp       AssetType = "saas_app"
	AssetNetworkDevice AssetType = "network_device"
	AssetCodeRepo      AssetType = "code_repo"
	AssetOther         AssetType = "other"
)

// AssetTypes lists every asset type.
var AssetTypes = []AssetType{
	AssetEndpoint,
	AssetServer,
	AssetVM,
	AssetContainer,
	AssetDatabase,
	AssetSaaSApp,
	AssetNetworkDevice,
	AssetCodeRepo,
	AssetOther,
}

// IsValid reports whether the asset type is recognized.
func (a AssetType) IsValid() bool {
	for _, v := range AssetTypes {
		if a == v {
			return true
		}
	}
	return false
}

// DataClassification labels the sensitivity of data an asset handles.
type DataClassification string

const (
	DataPublic       DataClassification = "public"
	DataInternal     DataClassification = "internal"
	DataConfidential DataClassification = "confidential"
	DataRegulated    DataClassification = "regulated"
	DataPHI          DataClassification = "phi"
	DataPII          DataClassification = "pii"
	DataUnknown      DataClassification = "unknown"
)

// DataClassifications lists every data classification.
var DataClassifications = []DataClassification{
	DataPublic,
	DataInternal,
	DataConfidential,
	DataRegulated,
	DataPHI,
	DataPII,
	DataUnknown,
}

// IsValid reports whether the data classification is recognized.
func (d DataClassification) IsValid() bool {
	for _, v := range DataClassifications {
		if d == v {
			return true
		}
	}
	return false
}

// IdentityType classifies an identity.
type IdentityType string

const (
	IdentityHuman      IdentityType = "human"
	IdentityService    IdentityType = "service"
	IdentityPrivileged IdentityType = "privileged"
	IdentityShared     IdentityType = "shared"
	IdentityBreakGlass IdentityType = "break_glass"
)

// IdentityTypes lists every identity type.
var IdentityTypes = []IdentityType{
	IdentityHuman,
	IdentityService,
	IdentityPrivileged,
	IdentityShared,
	IdentityBreakGlass,
}

// IsValid reports whether the identity type is recognized.
func (i IdentityType) IsValid() bool {
	for _, v := range IdentityTypes {
		if i == v {
			return true
		}
	}
	return false
}

// IdentityStatus tracks account status as reported by auth sources.
type IdentityStatus string

const (
	IdentityActive     IdentityStatus = "active"
	IdentityDisabled   IdentityStatus = "disabled"
	IdentityPending    IdentityStatus = "pending"
	IdentityTerminated IdentityStatus = "terminated"
	IdentityStale      IdentityStatus = "stale"
)

// IdentityStatuses lists every identity status.
var IdentityStatuses = []IdentityStatus{
	IdentityActive,
	IdentityDisabled,
	IdentityPending,
	IdentityTerminated,
	IdentityStale,
}

// IsValid reports whether the identity status is recognized.
func (i IdentityStatus) IsValid() bool {
	for _, v := range IdentityStatuses {
		if i == v {
			return true
		}
	}
	return false
}

// GroupType classifies a group.
type GroupType string

const (
	GroupAD    GroupType = "ad_group"
	GroupOkta  GroupType = "okta_group"
	GroupRole  GroupType = "role"
	GroupOther GroupType = "other"
)

// GroupTypes lists every group type.
var GroupTypes = []GroupType{GroupAD, GroupOkta, GroupRole, GroupOther}

// IsValid reports whether the group type is recognized.
func (g GroupType) IsValid() bool {
	for _, v := range GroupTypes {
		if g == v {
			return true
		}
	}
	return false
}

// LocationType classifies a physical or logical location.
type LocationType string

const (
	LocationOffice      LocationType = "office"
	LocationDatacenter  LocationType = "datacenter"
	LocationCloudRegion LocationType = "cloud_region"
	LocationOther       LocationType = "other"
)

// LocationTypes lists every location type.
var LocationTypes = []LocationType{
	LocationOffice,
	LocationDatacenter,
	LocationCloudRegion,
	LocationOther,
}

// IsValid reports whether the location type is recognized.
func (l LocationType) IsValid() bool {
	for _, v := range LocationTypes {
		if l == v {
			return true
		}
	}
	return false
}
