package middleware

// identity.go holds the user key helper shared by the rate limiter.  It
// reads the ID stored by JWTAuth; unauthenticated requests are keyed as
// "anon".

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

func currentUserID(c echo.Context) string {
    if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
