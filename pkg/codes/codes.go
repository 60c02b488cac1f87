package codes

// Severity grades how loudly a failure should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ErrorCode represents a classified failure shared across UI surfaces.
//
// Numeric follows the status*100+n scheme so codes sort next to their
// transport equivalent. Retryable is the default policy for the code; a
// classified error may still override it.
type ErrorCode struct {
	Numeric   int32
	Symbol    string
	Title     string
	Message   string
	Severity  Severity
	Retryable bool
}

var (
	// Network indicates the request never produced a response.
	Network = ErrorCode{Numeric: 50301, Symbol: "NETWORK_ERROR", Title: "Network Error", Message: "Unable to reach the server. Please check your connection and try again.", Severity: SeverityWarning, Retryable: true}
	// Timeout indicates the operation exceeded its deadline.
	Timeout = ErrorCode{Numeric: 50401, Symbol: "TIMEOUT_ERROR", Title: "Request Timeout", Message: "The request took too long to complete. Please try again.", Severity: SeverityWarning, Retryable: true}
	// Cancelled indicates the operation was aborted before completion.
	Cancelled = ErrorCode{Numeric: 49901, Symbol: "CANCELLED_ERROR", Title: "Request Cancelled", Message: "The request was cancelled.", Severity: SeverityInfo, Retryable: true}
	// NotFound indicates the requested resource does not exist.
	NotFound = ErrorCode{Numeric: 40401, Symbol: "NOT_FOUND", Title: "Not Found", Message: "The requested resource could not be found.", Severity: SeverityInfo}
	// Unauthorized indicates missing credentials.
	Unauthorized = ErrorCode{Numeric: 40101, Symbol: "UNAUTHORIZED", Title: "Unauthorized", Message: "Please sign in to continue.", Severity: SeverityError}
	// Forbidden indicates the caller lacks permission.
	Forbidden = ErrorCode{Numeric: 40301, Symbol: "FORBIDDEN", Title: "Access Denied", Message: "You do not have permission to perform this action.", Severity: SeverityError}
	// BadRequest indicates a malformed request.
	BadRequest = ErrorCode{Numeric: 40001, Symbol: "BAD_REQUEST", Title: "Invalid Request", Message: "The request could not be processed.", Severity: SeverityWarning}
	// Server indicates a 5xx-equivalent failure on the remote side.
	Server = ErrorCode{Numeric: 50001, Symbol: "SERVER_ERROR", Title: "Server Error", Message: "The server encountered an error. Please try again later.", Severity: SeverityError, Retryable: true}
	// Validation indicates user input failed validation.
	Validation = ErrorCode{Numeric: 42201, Symbol: "VALIDATION_ERROR", Title: "Validation Error", Message: "Please check the information you entered.", Severity: SeverityWarning}
	// Auth indicates an invalid or expired session.
	Auth = ErrorCode{Numeric: 40102, Symbol: "AUTH_ERROR", Title: "Authentication Error", Message: "Your session is no longer valid. Please sign in again.", Severity: SeverityError}
	// Unknown is used when nothing more specific applies.
	Unknown = ErrorCode{Numeric: 50000, Symbol: "UNKNOWN_ERROR", Title: "Unexpected Error", Message: "An unknown error occurred.", Severity: SeverityError}
)

// Registry exposes a static list for validation or docs.
var Registry = []ErrorCode{
	Network,
	Timeout,
	Cancelled,
	NotFound,
	Unauthorized,
	Forbidden,
	BadRequest,
	Server,
	Validation,
	Auth,
	Unknown,
}

// Lookup finds a registered code by its symbol.
func Lookup(symbol string) (ErrorCode, bool) {
	for _, c := range Registry {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return ErrorCode{}, false
}

// FromHTTPStatus maps a response status to its code. Statuses without a
// dedicated code are reported as network failures.
func FromHTTPStatus(status int) ErrorCode {
	switch {
	case status == 400:
		return BadRequest
	case status == 401:
		return Unauthorized
	case status == 403:
		return Forbidden
	case status == 404:
		return NotFound
	case status >= 500 && status < 600:
		return Server
	default:
		return Network
	}
}

// HTTPStatus is the response status a server should answer with for c. The
// numeric code carries it in its leading three digits.
func (c ErrorCode) HTTPStatus() int {
	if s := int(c.Numeric / 100); s >= 400 && s < 600 {
		return s
	}
	return 500
}
