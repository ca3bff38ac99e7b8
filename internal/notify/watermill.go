package notify

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/diewo77/go-timesheets/internal/logger"
)

// NewBus returns the in-process pub/sub used between Dispatcher and
// Worker. Messages are not retained: a topic without subscriber drops
// them, so the worker subscribes before the server starts.
func NewBus(log *logger.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 100,
	}, WatermillLogger(log))
}

type watermillLogger struct {
	log *logger.Logger
}

// WatermillLogger adapts a zap logger to watermill.
func WatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return watermillLogger{log: log.Named("watermill")}
}

func fields(f watermill.LogFields) []any {
	kv := make([]any, 0, len(f)*2)
	for k, v := range f {
		kv = append(kv, k, v)
	}
	return kv
}

func (w watermillLogger) Error(msg string, err error, f watermill.LogFields) {
	w.log.Errorw(msg, append(fields(f), "error", err)...)
}

func (w watermillLogger) Info(msg string, f watermill.LogFields) {
	w.log.Infow(msg, fields(f)...)
}

func (w watermillLogger) Debug(msg string, f watermill.LogFields) {
	w.log.Debugw(msg, fields(f)...)
}

func (w watermillLogger) Trace(msg string, f watermill.LogFields) {
	w.log.Debugw(msg, fields(f)...)
}

func (w watermillLogger) With(f watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{log: w.log.With(fields(f)...)}
}
