package kiotviet

import "fmt"

// TokenAcquisitionError means the token endpoint refused or was unreachable.
// Fatal for the run.
type TokenAcquisitionError struct {
	Cause error
}

func (e *TokenAcquisitionError) Error() string {
	return fmt.Sprintf("kiotviet: token acquisition failed: %v", e.Cause)
}

func (e *TokenAcquisitionError) Unwrap() error {
	return e.Cause
}

// AuthError is a 401 that survived one bearer refresh. Fatal for the run.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("kiotviet: unauthorized after token refresh (status %d)", e.Status)
}

// ContractError is a response body that does not match the list contract
// (missing total/data, unparsable JSON). Fatal for the page; Excerpt carries
// the offending body head for the report.
type ContractError struct {
	Reason  string
	Excerpt string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("kiotviet: malformed response (%s): %s", e.Reason, e.Excerpt)
}

// statusError wraps a non-2xx list response so the fetcher can pick a retry
// policy off the status class.
type statusError struct {
	Status  int
	Excerpt string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("kiotviet: api error %d: %s", e.Status, e.Excerpt)
}
