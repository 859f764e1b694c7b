package report

import (
	"checkin-go/application/checkin"
)

// Messages used when an outcome carries no more specific text.
const (
	MsgInfoUnavailable = "Check-in OK but failed to get info"
	MsgRequestFailed   = "Request failed"
)

// FromOutcome builds the report record for one account.
//
// A success with balance data records the balance. A success without it is
// still a success but keeps MsgInfoUnavailable. A failure takes the most
// specific message available: the pipeline error, then the user-info error.
func FromOutcome(name string, out checkin.Outcome) Record {
	r := Record{Name: name, Success: out.Success}

	if out.Success {
		if out.UserInfo != nil && out.UserInfo.Success {
			r.Quota = out.UserInfo.Quota
			r.Used = out.UserInfo.UsedQuota
		} else {
			r.Message = MsgInfoUnavailable
		}
		return r
	}

	switch {
	case out.Err != nil && out.Err.Message != "":
		r.Message = out.Err.Message
	case out.UserInfo != nil && out.UserInfo.Error != "":
		r.Message = out.UserInfo.Error
	default:
		r.Message = MsgRequestFailed
	}
	return r
}
