package metamanager

import (
	"context"
	"time"

	"github.com/meridian-data/meridian/internal/metasrv/metacommon"
	"github.com/meridian-data/meridian/pkg/metadata"
)

const anonymousUser = "anonymous"

func callerIdentity(ctx context.Context) (userID, userName string) {
	userID, userName = anonymousUser, anonymousUser
	if caller := metacommon.CallerFromContext(ctx); caller != nil {
		if caller.UserID != "" {
			userID = caller.UserID
		}
		if caller.UserName != "" {
			userName = caller.UserName
		}
	}
	return userID, userName
}

// injectCreateAudit stamps the controlled audit attributes on a brand-new
// tag: create and update attrs both reflect the current request.
func injectCreateAudit(ctx context.Context, attrs map[string]metadata.Value, now time.Time) {
	userID, userName := callerIdentity(ctx)
	attrs[metadata.AttrCreateTime] = metadata.DatetimeValue(now)
	attrs[metadata.AttrCreateUserID] = metadata.StringValue(userID)
	attrs[metadata.AttrCreateUserName] = metadata.StringValue(userName)
	attrs[metadata.AttrUpdateTime] = metadata.DatetimeValue(now)
	attrs[metadata.AttrUpdateUserID] = metadata.StringValue(userID)
	attrs[metadata.AttrUpdateUserName] = metadata.StringValue(userName)
}

// injectUpdateAudit refreshes the update attrs; create attrs propagate
// unchanged from the prior tag's attribute map.
func injectUpdateAudit(ctx context.Context, attrs map[string]metadata.Value, now time.Time) {
	userID, userName := callerIdentity(ctx)
	attrs[metadata.AttrUpdateTime] = metadata.DatetimeValue(now)
	attrs[metadata.AttrUpdateUserID] = metadata.StringValue(userID)
	attrs[metadata.AttrUpdateUserName] = metadata.StringValue(userName)
}
