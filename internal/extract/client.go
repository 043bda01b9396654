// Package extract reads play history from screenshots through a Dify-style
// chat service.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/verte-zerg/zonecalc/internal/model"
)

// Defaults for the extraction service.
const (
	DefaultBaseURL = "https://suroschooldifyai.xyz/v1"
	DefaultUser    = "pachislot-calculator"
	DefaultTimeout = 2 * time.Minute
	MaxImageBytes  = 4 << 20
)

const (
	requestRate  = rate.Limit(1)
	requestBurst = 2
	maxBodyLog   = 512
)

const prompt = `画像からパチスロの履歴データを解析してください。
各行のゲーム数とボーナス種別（BBまたはRB）を抽出してください。
ヘッダーやサマリーは無視して、ゲーム結果の行のみを対象にしてください。

必ず以下の形式のJSONのみで回答してください：
{
  "results": [
    {"game": ゲーム数, "type": "BB"},
    {"game": ゲーム数, "type": "RB"}
  ]
}

説明や追加テキストは不要です。JSONのみ返してください。`

// Client talks to the extraction service.
type Client struct {
	baseURL    string
	apiKey     string
	user       string
	lenient    bool
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type uploadResponse struct {
	ID string `json:"id"`
}

type chatFile struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	UploadFileID   string `json:"upload_file_id"`
}

type chatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id"`
	User           string         `json:"user"`
	Files          []chatFile     `json:"files"`
}

type chatResponse struct {
	Answer  any `json:"answer"`
	Data    any `json:"data"`
	Message any `json:"message"`
}

// New returns a Client for cfg. A nil logger discards log output.
func New(cfg model.ExtractConfig, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		lenient:    cfg.Lenient,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(requestRate, requestBurst),
		logger:     logger.With(slog.String("component", "extract")),
	}, nil
}

// Extract uploads an image and returns the entries read from it.
// ErrNoRecords is returned when the reply holds no usable entries.
func (c *Client) Extract(ctx context.Context, filename string, image io.Reader) ([]model.RawRecord, error) {
	data, err := io.ReadAll(io.LimitReader(image, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	fileID, err := c.upload(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	text, err := c.chat(ctx, fileID)
	if err != nil {
		return nil, err
	}

	records := ParseAnswer(text, c.lenient)
	c.logger.Debug("extraction parsed", slog.Int("records", len(records)))
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

func (c *Client) upload(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := form.WriteField("user", c.user); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	var resp uploadResponse
	if err := c.do(ctx, "file upload", "/files/upload", form.FormDataContentType(), &body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("file upload returned no id")
	}
	return resp.ID, nil
}

func (c *Client) chat(ctx context.Context, fileID string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Inputs:         map[string]any{},
		Query:          prompt,
		ResponseMode:   "blocking",
		ConversationID: "",
		User:           c.user,
		Files: []chatFile{{
			Type:           "image",
			TransferMethod: "local_file",
			UploadFileID:   fileID,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var resp chatResponse
	if err := c.do(ctx, "chat message", "/chat-messages", "application/json", bytes.NewReader(payload), &resp); err != nil {
		return "", err
	}
	for _, v := range []any{resp.Answer, resp.Data, resp.Message} {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	return "", nil
}

func (c *Client) do(ctx context.Context, op, path, contentType string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Info("request completed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
