package middleware

import (
	"bytes"
	"net/http"
	"time"

	"ticket-fulfillment/internal/metrics"
	"ticket-fulfillment/internal/model"
	"ticket-fulfillment/internal/repository"
	"ticket-fulfillment/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

const replayContentType = "application/json; charset=utf-8"

// IdempotentResponse 以 Idempotency-Key 快取回應並原樣重播。
// 2xx 與 4xx 都會存（包含失敗），5xx 不存，讓呼叫方用同一把 key 重試。
// 沒帶 key 的請求直接放行。
func IdempotentResponse(store repository.InventoryIdempotencyRepository, m *metrics.InventoryMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		log := logger.WithComponent("idempotency").With(
			zap.String("operation", "IdempotentResponse"),
			zap.String("idempotency_key", key),
		)
		ctx := c.Request.Context()

		record, err := store.Find(ctx, key)
		if err != nil {
			log.Error("failed to lookup idempotency key", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if record != nil {
			m.IdempotentReplaysTotal.Inc()
			log.Info("replaying cached response", zap.Int("status", record.ResponseCode))
			c.Data(record.ResponseCode, replayContentType, record.ResponseBody)
			c.Abort()
			return
		}

		original := c.Writer
		buffered := &bufferedResponseWriter{ResponseWriter: original, status: http.StatusOK}
		c.Writer = buffered
		c.Next()
		c.Writer = original

		if buffered.status >= http.StatusInternalServerError {
			c.Data(buffered.status, replayContentType, buffered.body.Bytes())
			return
		}

		stored, err := store.Save(ctx, &model.InventoryIdempotencyRecord{
			Key:          key,
			ResponseCode: buffered.status,
			ResponseBody: buffered.body.Bytes(),
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			// 已經做完的結果照樣回給呼叫方
			log.Error("failed to save idempotency record", zap.Error(err))
			c.Data(buffered.status, replayContentType, buffered.body.Bytes())
			return
		}

		if stored.ResponseCode != buffered.status || !bytes.Equal(stored.ResponseBody, buffered.body.Bytes()) {
			// 另一個同 key 的請求先寫入
			m.IdempotentReplaysTotal.Inc()
			log.Info("lost idempotency race, replaying stored response", zap.Int("status", stored.ResponseCode))
		}
		c.Data(stored.ResponseCode, replayContentType, stored.ResponseBody)
	}
}

// bufferedResponseWriter 先把 handler 的輸出留在記憶體，確定要回哪一份後才寫出
type bufferedResponseWriter struct {
	gin.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	w.status = code
}

func (w *bufferedResponseWriter) WriteHeaderNow() {}

func (w *bufferedResponseWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bufferedResponseWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *bufferedResponseWriter) Status() int {
	return w.status
}

func (w *bufferedResponseWriter) Size() int {
	return w.body.Len()
}

func (w *bufferedResponseWriter) Written() bool {
	return false
}
