package internaldefs

import (
	goIAM "github.com/MrEthical07/goIAM"
)

// AuditDroppedName is the counter fed by Engine.AuditDropped rather than by
// a MetricID.
const (
	AuditDroppedName = "goiam_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

type CounterDef struct {
	ID   goIAM.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goIAM.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goIAM.MetricSignUpSuccess, Name: "goiam_sign_up_success_total", Help: "Accounts created."},
	{ID: goIAM.MetricSignUpDuplicate, Name: "goiam_sign_up_duplicate_total", Help: "Sign-ups rejected because the username or email was taken."},
	{ID: goIAM.MetricSignUpFailure, Name: "goiam_sign_up_failure_total", Help: "Sign-ups failed for any other reason."},
	{ID: goIAM.MetricSignInSuccess, Name: "goiam_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: goIAM.MetricSignInFailure, Name: "goiam_sign_in_failure_total", Help: "Failed sign-ins."},
	{ID: goIAM.MetricRefreshSuccess, Name: "goiam_refresh_success_total", Help: "Successful refresh-token rotations."},
	{ID: goIAM.MetricRefreshFailure, Name: "goiam_refresh_failure_total", Help: "Rejected refresh requests."},
	{ID: goIAM.MetricRefreshReuseDetected, Name: "goiam_refresh_reuse_detected_total", Help: "Refresh requests presenting a superseded token id."},
	{ID: goIAM.MetricRefreshSessionUnknown, Name: "goiam_refresh_session_unknown_total", Help: "Refresh requests for an account without a live token id."},
	{ID: goIAM.MetricTokensIssued, Name: "goiam_tokens_issued_total", Help: "Access/refresh pairs issued."},
	{ID: goIAM.MetricTokenVerifyFailure, Name: "goiam_token_verify_failure_total", Help: "Tokens failing signature, claim or expiry checks."},
	{ID: goIAM.MetricPasswordChangeSuccess, Name: "goiam_password_change_success_total", Help: "Successful password changes."},
	{ID: goIAM.MetricPasswordChangeInvalidOld, Name: "goiam_password_change_invalid_old_total", Help: "Password changes rejected for a wrong current password."},
	{ID: goIAM.MetricPasswordHashUpgraded, Name: "goiam_password_hash_upgraded_total", Help: "Stored digests re-hashed on sign-in."},
	{ID: goIAM.MetricAccountUpdated, Name: "goiam_account_updated_total", Help: "Profile updates."},
	{ID: goIAM.MetricAccountDeleted, Name: "goiam_account_deleted_total", Help: "Deleted accounts."},
	{ID: goIAM.MetricSessionInvalidated, Name: "goiam_session_invalidated_total", Help: "Live refresh-token ids removed by replay or deletion."},
}

var HistogramDefs = []HistogramDef{
	{ID: goIAM.MetricRefreshLatency, Name: "goiam_refresh_latency_seconds", Help: "RefreshTokens latency histogram."},
}

// HistogramBounds are the upper bounds of the Engine's fixed buckets in
// seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bound for exporters that cannot carry
// labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
