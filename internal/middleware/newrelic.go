package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicContext moves the transaction started by nrgin into the request
// context so outbound clients and the Redis hook can attach segments to it.
// It must run after nrgin.Middleware.
func NewRelicContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(newrelic.NewContext(c.Request.Context(), txn))
		c.Next()

		for _, e := range c.Errors {
			if status := c.Writer.Status(); status >= 500 {
				txn.NoticeError(e.Err)
			}
		}
	}
}
