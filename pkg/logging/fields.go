package logging

import "log/slog"

// Domain identifiers

func Room(room string) slog.Attr {
	return slog.String("room", room)
}

func Role(role string) slog.Attr {
	return slog.String("role", role)
}

func TableID(id string) slog.Attr {
	return slog.String("table_id", id)
}

func ConnID(id string) slog.Attr {
	return slog.String("conn_id", id)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// Request / tracing

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
