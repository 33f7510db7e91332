package handler

type ContextKey string

var (
	ClaimsCtxKey      ContextKey = "claims"
	RequestIDCtxKey   ContextKey = "requestID"
	CurrentUserCtxKey ContextKey = "currentUser"
	UserRecordCtx     ContextKey = "userRecord"
	OfficeRecordCtx   ContextKey = "officeRecord"
	DRMEntryCtx       ContextKey = "drmEntry"
	DailyMetricCtx    ContextKey = "dailyMetric"
	TargetRecordCtx   ContextKey = "targetRecord"
)
