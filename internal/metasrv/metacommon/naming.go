package metacommon

import (
	"regexp"
	"strings"

	"github.com/meridian-data/meridian/pkg/metadata"
)

// Identifier grammars for externally supplied names. Anything that fails
// these checks is rejected before it reaches the DAL.
var (
	tenantCodeRegex  = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,31}$`)
	attrNameRegex    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.]*$`)
	resourceKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)
	appCodeRegex     = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	configNameRegex  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)
)

func IsValidTenantCode(code string) bool {
	return tenantCodeRegex.MatchString(code)
}

func IsValidAttrName(name string) bool {
	return attrNameRegex.MatchString(name)
}

// IsReservedAttrName reports whether the name sits in the platform-owned
// namespace, writable only by trusted callers.
func IsReservedAttrName(name string) bool {
	return strings.HasPrefix(name, metadata.ReservedAttrPrefix)
}

func IsValidResourceKey(key string) bool {
	return resourceKeyRegex.MatchString(key)
}

func IsValidApplicationCode(code string) bool {
	return appCodeRegex.MatchString(code)
}

// Config classes and keys share one grammar; keys are case-sensitive.
func IsValidConfigName(name string) bool {
	return configNameRegex.MatchString(name)
}
