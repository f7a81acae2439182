package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/coregx/querygov/internal/classifier"
	"github.com/coregx/querygov/internal/logger"
)

// AuditLevel selects which statements the Auditor records.
type AuditLevel int

const (
	// AuditNone disables audit logging.
	AuditNone AuditLevel = iota
	// AuditBlocked records only statements the guard rejected.
	AuditBlocked
	// AuditWrites records blocked statements plus mutations and DDL.
	AuditWrites
	// AuditAll records every statement.
	AuditAll
)

// Auditor writes an audit trail of governed statements through the module
// logger. Request identity (user, client IP, request ID) travels on the
// context.
type Auditor struct {
	log   logger.Logger
	level AuditLevel
}

// NewAuditor creates an auditor at the given level. A nil logger disables
// output regardless of level.
func NewAuditor(log logger.Logger, level AuditLevel) *Auditor {
	if log == nil {
		log = &logger.NoopLogger{}
	}
	return &Auditor{log: log, level: level}
}

// LogStatement records an executed statement when the level covers its kind.
// Parameter values are hashed, never logged.
func (a *Auditor) LogStatement(ctx context.Context, kind classifier.Kind, sql string, params []any, rows int64, duration time.Duration, err error) {
	if !a.shouldLog(kind) {
		return
	}

	args := []any{
		"kind", kind.String(),
		"sql", sql,
		"user", GetUser(ctx),
		"client_ip", GetClientIP(ctx),
		"request_id", GetRequestID(ctx),
		"rows", rows,
		"duration_ms", duration.Milliseconds(),
	}
	if len(params) > 0 {
		args = append(args, "params_hash", hashParams(params))
	}

	if err != nil {
		args = append(args, "error", err.Error())
		a.log.Warn("audit_event", args...)
		return
	}
	a.log.Info("audit_event", args...)
}

// LogBlocked records a statement the guard rejected. Active at every level
// except AuditNone.
func (a *Auditor) LogBlocked(ctx context.Context, kind classifier.Kind, sql string, reason error) {
	if a.level == AuditNone {
		return
	}

	msg := ""
	if reason != nil {
		msg = reason.Error()
	}
	a.log.Warn("security_event",
		"kind", kind.String(),
		"sql", sql,
		"user", GetUser(ctx),
		"client_ip", GetClientIP(ctx),
		"request_id", GetRequestID(ctx),
		"reason", msg,
	)
}

// shouldLog reports whether an executed statement of this kind is audited.
func (a *Auditor) shouldLog(kind classifier.Kind) bool {
	switch a.level {
	case AuditWrites:
		return kind.IsMutation() || kind == classifier.KindDDL
	case AuditAll:
		return true
	default:
		return false
	}
}

// hashParams creates a SHA256 hash of the parameter list so the audit trail
// can correlate executions without storing the values themselves.
func hashParams(params []any) string {
	h := sha256.New()
	for _, param := range params {
		_, _ = fmt.Fprintf(h, "%v", param)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Context keys for audit identity.
type contextKey string

const (
	userKey      contextKey = "querygov:user"
	clientIPKey  contextKey = "querygov:client_ip"
	requestIDKey contextKey = "querygov:request_id"
)

// WithUser adds user identity to the context for audit logging.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithClientIP adds the client IP to the context for audit logging.
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey, clientIP)
}

// WithRequestID adds a request ID to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetUser retrieves the user identity from the context.
func GetUser(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// GetClientIP retrieves the client IP from the context.
func GetClientIP(ctx context.Context) string {
	clientIP, _ := ctx.Value(clientIPKey).(string)
	return clientIP
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
