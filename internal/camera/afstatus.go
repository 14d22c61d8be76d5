package camera

// AFStatus is the decoded autofocus result carried by an AF warning event.
type AFStatus int

const (
	AFStatusUnknown AFStatus = iota
	AFStatusFocused
	AFStatusNotFocused
	AFStatusUnlocked
)

// WarningAFStatus is the vendor warning code whose first parameter carries
// the autofocus result.
const WarningAFStatus = 0x8001

// AF result parameter values for WarningAFStatus.
const (
	afParamFocused    = 1
	afParamNotFocused = 2
	afParamUnlocked   = 3
)

// DecodeAFStatus inspects a warning event and reports the AF result it
// carries, if any. ok is false for warnings unrelated to autofocus.
func DecodeAFStatus(warningCode int, params []int) (AFStatus, bool) {
	if warningCode != WarningAFStatus || len(params) == 0 {
		return AFStatusUnknown, false
	}
	switch params[0] {
	case afParamFocused:
		return AFStatusFocused, true
	case afParamNotFocused:
		return AFStatusNotFocused, true
	case afParamUnlocked:
		return AFStatusUnlocked, true
	default:
		return AFStatusUnknown, true
	}
}

// String names the status for updates and log lines.
func (s AFStatus) String() string {
	switch s {
	case AFStatusFocused:
		return "focused"
	case AFStatusNotFocused:
		return "not_focused"
	case AFStatusUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}
