package utils

import (
	"strconv"
	"strings"
)

// Callback uniques. Telegram limits callback data to 64 bytes, so keep
// them short.
const (
	CbPage      = "pg"
	CbFilters   = "flt"
	CbFilterSet = "fset"
	CbFilterOpt = "fopt"
	CbFilterClr = "fclr"
	CbSort      = "srt"
	CbSortSet   = "sset"
	CbSaveView  = "save"
	CbLoadView  = "load"
	CbDropView  = "drop"
	CbDetail    = "det"
	CbApply     = "apply"
	CbStatus    = "stat"
	CbRole      = "role"
	CbOTPResend = "otpr"
	CbOTPBack   = "otpb"
	CbLogoSkip  = "logoskip"
	CbNotify    = "notify"
	CbInterval  = "intv"
	CbProfile   = "prof"
	CbManage    = "manage"
	CbCancel    = "cancel"
	CbNoop      = "noop"
)

// Page actions carried by CbPage.
const (
	PageShow  = "show"
	PageNext  = "next"
	PagePrev  = "prev"
	PageGoTo  = "goto"
	PageRetry = "retry"
	PageClear = "clear"
)

// Callback is a parsed inline button payload: "\funique|arg1|arg2".
type Callback struct {
	Unique string
	Args   []string
}

func ParseCallback(data string) Callback {
	data = strings.TrimPrefix(data, "\f")
	parts := strings.Split(data, "|")
	return Callback{Unique: parts[0], Args: parts[1:]}
}

func (c Callback) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

func (c Callback) IntArg(i int) (int, bool) {
	n, err := strconv.Atoi(c.Arg(i))
	return n, err == nil
}

func (c Callback) Int64Arg(i int) (int64, bool) {
	n, err := strconv.ParseInt(c.Arg(i), 10, 64)
	return n, err == nil
}
