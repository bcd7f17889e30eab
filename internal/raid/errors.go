package raid

import "fmt"

// Kind groups rejection codes by how the caller should treat them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindResource      Kind = "resource"
	KindState         Kind = "state"
	KindDataIntegrity Kind = "data_integrity"
)

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeClassUnknown         Code = "RAID_CLASS_UNKNOWN"
	CodeSizeOutOfBounds      Code = "RAID_SIZE_OUT_OF_BOUNDS"
	CodeCompositionMismatch  Code = "RAID_COMPOSITION_MISMATCH"
	CodeTargetMissing        Code = "RAID_TARGET_MISSING"
	CodeTargetIsOrigin       Code = "RAID_TARGET_IS_ORIGIN"
	CodeTargetNotCoastal     Code = "RAID_TARGET_NOT_COASTAL"
	CodeOriginMissing        Code = "RAID_ORIGIN_MISSING"
	CodeShipsInsufficient    Code = "RAID_SHIPS_INSUFFICIENT"
	CodeLeaderBusy           Code = "RAID_LEADER_BUSY"
	CodeWarriorsInsufficient Code = "RAID_WARRIORS_INSUFFICIENT"
	CodeSuppliesInsufficient Code = "RAID_SUPPLIES_INSUFFICIENT"
	CodeRaidNotFound         Code = "RAID_NOT_FOUND"
	CodeRaidNotRecallable    Code = "RAID_NOT_RECALLABLE"
	CodeTargetVanished       Code = "RAID_TARGET_VANISHED"
)

// Kind returns the category a code belongs to.
func (c Code) Kind() Kind {
	switch c {
	case CodeWarriorsInsufficient, CodeSuppliesInsufficient:
		return KindResource
	case CodeRaidNotFound, CodeRaidNotRecallable:
		return KindState
	case CodeTargetVanished:
		return KindDataIntegrity
	default:
		return KindValidation
	}
}

// Rejection explains why a raid request was refused. Message is written for
// the player.
type Rejection struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Kind returns the rejection's category.
func (r *Rejection) Kind() Kind {
	return r.Code.Kind()
}
