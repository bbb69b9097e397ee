package errors

import "strconv"

// ERR is the numeric error code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN          ERR = 0
	ERR_INVALID_ARGUMENT ERR = 1
	ERR_NOT_FOUND        ERR = 3
	ERR_PROCESSING       ERR = 4
	ERR_CONFIGURATION    ERR = 5
	ERR_CONTEXT          ERR = 6
	ERR_CONTEXT_CANCELED ERR = 7
	ERR_ERROR            ERR = 9

	// settlement errors
	ERR_CONFLICT           ERR = 20
	ERR_INVALID_OPERATION  ERR = 21
	ERR_INSUFFICIENT_FUNDS ERR = 22
	ERR_FORBIDDEN          ERR = 23
	ERR_UNAUTHORIZED       ERR = 24
	ERR_TOO_MANY_REQUESTS  ERR = 25

	ERR_SERVICE_UNAVAILABLE ERR = 50
	ERR_SERVICE_NOT_STARTED ERR = 51
	ERR_SERVICE_ERROR       ERR = 52

	ERR_STORAGE_UNAVAILABLE ERR = 60
	ERR_STORAGE_NOT_STARTED ERR = 61
	ERR_STORAGE_ERROR       ERR = 62
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT",
	7:  "CONTEXT_CANCELED",
	9:  "ERROR",
	20: "CONFLICT",
	21: "INVALID_OPERATION",
	22: "INSUFFICIENT_FUNDS",
	23: "FORBIDDEN",
	24: "UNAUTHORIZED",
	25: "TOO_MANY_REQUESTS",
	50: "SERVICE_UNAVAILABLE",
	51: "SERVICE_NOT_STARTED",
	52: "SERVICE_ERROR",
	60: "STORAGE_UNAVAILABLE",
	61: "STORAGE_NOT_STARTED",
	62: "STORAGE_ERROR",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return strconv.Itoa(int(x))
}

func (x ERR) valid() bool {
	_, ok := ERR_name[int32(x)]
	return ok
}
