package artifact

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/pkg/logger"
)

// ErrorReport is the body of a *.error.json file.
type ErrorReport struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func ReadJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Read(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// WriteJSON writes v indented with two spaces.
func WriteJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Write(ctx, key, data)
}

// ReadJSONL decodes one record per line. Blank lines are ignored and
// malformed lines are logged and skipped.
func ReadJSONL[T any](ctx context.Context, s Store, key string) ([]T, error) {
	data, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	var out []T
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warn("[Artifact] Skipping malformed line", "key", key, "line", line, "err", err)
			continue
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", key, err)
	}
	return out, nil
}

func WriteJSONL[T any](ctx context.Context, s Store, key string, records []T) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record %d of %s: %w", i, key, err)
		}
	}
	return s.Write(ctx, key, buf.Bytes())
}

func WriteError(ctx context.Context, s Store, key, code string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return WriteJSON(ctx, s, key, ErrorReport{Error: code, Message: msg})
}
