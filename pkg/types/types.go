package types

import "slices"

type TenantId string

func (t TenantId) String() string {
	return string(t)
}

// ObjectType is the fixed type of a metadata object. It is assigned at
// creation and never changes across versions.
type ObjectType string

const (
	ObjectTypeInvalid  ObjectType = ""
	ObjectTypeData     ObjectType = "DATA"
	ObjectTypeModel    ObjectType = "MODEL"
	ObjectTypeFlow     ObjectType = "FLOW"
	ObjectTypeJob      ObjectType = "JOB"
	ObjectTypeFile     ObjectType = "FILE"
	ObjectTypeStorage  ObjectType = "STORAGE"
	ObjectTypeSchema   ObjectType = "SCHEMA"
	ObjectTypeCustom   ObjectType = "CUSTOM"
	ObjectTypeConfig   ObjectType = "CONFIG"
	ObjectTypeResource ObjectType = "RESOURCE"
)

var objectTypes = []ObjectType{
	ObjectTypeData,
	ObjectTypeModel,
	ObjectTypeFlow,
	ObjectTypeJob,
	ObjectTypeFile,
	ObjectTypeStorage,
	ObjectTypeSchema,
	ObjectTypeCustom,
	ObjectTypeConfig,
	ObjectTypeResource,
}

func (t ObjectType) IsValid() bool {
	return slices.Contains(objectTypes, t)
}

func (t ObjectType) String() string {
	return string(t)
}

// ObjectTypes returns all valid object types.
func ObjectTypes() []ObjectType {
	return slices.Clone(objectTypes)
}

// Object types a public (non-trusted) caller is allowed to create and
// update. Everything else is reserved for server-originated writes.
var publicWritableTypes = []ObjectType{
	ObjectTypeSchema,
	ObjectTypeFlow,
	ObjectTypeCustom,
}

func (t ObjectType) IsPublicWritable() bool {
	return slices.Contains(publicWritableTypes, t)
}

// Well-known config classes used by the platform itself.
const (
	ConfigClassResources = "resources"
	ConfigClassConfig    = "config"
)

const (
	VersionV1 = "v1"
)
