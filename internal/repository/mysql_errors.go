package repository

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories react to.
const (
    mysqlDuplicateEntry  uint16 = 1062
    mysqlLockWaitTimeout uint16 = 1205
    mysqlDeadlock        uint16 = 1213
    mysqlNoReferencedRow uint16 = 1452
)

func mysqlCode(err error) (uint16, string, bool) {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number, me.Message, true
    }
    return 0, "", false
}

func isDuplicateKey(err error) bool {
    code, _, ok := mysqlCode(err)
    return ok && code == mysqlDuplicateEntry
}

// duplicateKeyName returns the index name reported in a 1062 message
// ("Duplicate entry 'x' for key 'users.uq_users_email'"), or "".
func duplicateKeyName(err error) string {
    code, msg, ok := mysqlCode(err)
    if !ok || code != mysqlDuplicateEntry {
        return ""
    }
    i := strings.LastIndex(msg, "for key ")
    if i < 0 {
        return ""
    }
    return strings.Trim(msg[i+len("for key "):], "'`")
}

func isForeignKeyMissing(err error) bool {
    code, _, ok := mysqlCode(err)
    return ok && code == mysqlNoReferencedRow
}

// isRetryable reports whether err is a lock wait timeout or a deadlock.
// InnoDB rolls the statement (1205) or the whole transaction (1213) back
// in both cases, so the unit can be run again from the start.
func isRetryable(err error) bool {
    code, _, ok := mysqlCode(err)
    return ok && (code == mysqlLockWaitTimeout || code == mysqlDeadlock)
}

// retryPolicy runs a transactional unit and retries it when MySQL reports
// lock contention.  Once attempts are exhausted, or the context deadline
// passes, the failure is reported as ErrTransient.
type retryPolicy struct {
    maxRetries int
    backoff    time.Duration
}

func (p retryPolicy) run(ctx context.Context, fn func() error) error {
    for attempt := 0; ; attempt++ {
        err := fn()
        switch {
        case err == nil:
            return nil
        case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
            return fmt.Errorf("%w: %v", ErrTransient, err)
        case !isRetryable(err):
            return err
        case attempt >= p.maxRetries:
            return fmt.Errorf("%w: %v", ErrTransient, err)
        }
        // linear backoff
        select {
        case <-ctx.Done():
            return fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
        case <-time.After(p.backoff * time.Duration(attempt+1)):
        }
    }
}
