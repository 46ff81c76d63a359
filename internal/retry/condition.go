package retry

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// Condition selects which responses and transport errors are worth another
// attempt. Field names follow envoy's retry_on policies.
type Condition struct {
	ServerError    bool
	GatewayError   bool
	ConnectFailure bool
	Retriable4xx   bool
	StatusCodes    []int
}

// DefaultCondition retries gateway errors, conflicts and connection failures
// but never a plain 500, since the diff server answers 500 only for encode
// failures that repeat deterministically.
func DefaultCondition() *Condition {
	return &Condition{
		GatewayError:   true,
		ConnectFailure: true,
		Retriable4xx:   true,
	}
}

// ParseCondition reads a comma separated list such as
// "gateway-error,connect-failure,429".
func ParseCondition(s string) (*Condition, error) {
	c := &Condition{}
	for _, token := range strings.Split(s, ",") {
		switch token = strings.TrimSpace(token); token {
		case "":
		case "5xx":
			c.ServerError = true
		case "gateway-error":
			c.GatewayError = true
		case "connect-failure":
			c.ConnectFailure = true
		case "retriable-4xx":
			c.Retriable4xx = true
		default:
			statusCode, err := strconv.Atoi(token)
			if err != nil {
				return nil, xerrors.Errorf("invalid retry condition %q: %w", token, err)
			}
			c.StatusCodes = append(c.StatusCodes, statusCode)
		}
	}
	return c, nil
}

// https://github.com/envoyproxy/envoy/blob/70d6ec1df6384118cf2fa2f02c0041edb76b2377/source/common/router/retry_state_impl.cc#L387
func (c *Condition) ShouldRetryResponse(response *http.Response) bool {
	switch code := response.StatusCode; {
	case c.ServerError && code >= 500 && code < 600:
		return true
	case c.GatewayError && code >= 502 && code < 505:
		return true
	case c.Retriable4xx && code == http.StatusConflict:
		return true
	default:
		return slices.Contains(c.StatusCodes, code)
	}
}

func (c *Condition) ShouldRetryError(err error) bool {
	if !c.ConnectFailure && !c.ServerError {
		return false
	}
	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
