package telegram

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/otabekdev/restockbot/internal/config"
)

// Client exposes the Telegram Bot API operations used by the application.
type Client interface {
	SendMessage(ctx context.Context, req SendMessageRequest) error
	SendDocument(ctx context.Context, req SendDocumentRequest) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	DownloadDocument(ctx context.Context, fileID string) ([]byte, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	fileClient *resty.Client
}

// NewClient builds a Telegram API client using the provided configuration
// values. API calls go to /bot<token>/<method>; file downloads go to the
// separate /file/bot<token>/<path> tree.
func NewClient(cfg config.TelegramConfig) *APIClient {
	apiClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", cfg.BaseURL, cfg.BotToken)).
		SetTimeout(30 * time.Second)

	fileClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/file/bot%s", cfg.BaseURL, cfg.BotToken)).
		SetTimeout(60 * time.Second)

	return &APIClient{
		httpClient: apiClient,
		fileClient: fileClient,
	}
}

// InlineButton is one selectable option attached to a message.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// SendMessageRequest represents a simplified text message payload with an
// optional single-row inline keyboard.
type SendMessageRequest struct {
	ChatID  int64
	Text    string
	Buttons []InlineButton
}

// SendDocumentRequest represents a file upload back to the operator.
type SendDocumentRequest struct {
	ChatID   int64
	FileName string
	Caption  string
	Data     []byte
}

// apiResponse mirrors the Telegram Bot API response envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type fileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FileID   string `json:"file_id"`
		FilePath string `json:"file_path"`
	} `json:"result"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers a text prompt, optionally with inline choices.
func (c *APIClient) SendMessage(ctx context.Context, req SendMessageRequest) error {
	payload := map[string]any{
		"chat_id": req.ChatID,
		"text":    req.Text,
	}
	if len(req.Buttons) > 0 {
		payload["reply_markup"] = map[string]any{
			"inline_keyboard": [][]InlineButton{req.Buttons},
		}
	}

	result := new(apiResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(result).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return checkAPIResponse(resp, result)
}

// SendDocument uploads a workbook payload as a document attachment.
func (c *APIClient) SendDocument(ctx context.Context, req SendDocumentRequest) error {
	result := new(apiResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("document", req.FileName, bytes.NewReader(req.Data)).
		SetFormData(map[string]string{
			"chat_id": fmt.Sprintf("%d", req.ChatID),
			"caption": req.Caption,
		}).
		SetResult(result).
		SetError(result).
		Post("/sendDocument")
	if err != nil {
		return fmt.Errorf("send telegram document: %w", err)
	}

	return checkAPIResponse(resp, result)
}

// AnswerCallbackQuery acknowledges a pressed inline button so the client
// stops showing a progress indicator.
func (c *APIClient) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	result := new(apiResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{"callback_query_id": callbackID}).
		SetResult(result).
		SetError(result).
		Post("/answerCallbackQuery")
	if err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return checkAPIResponse(resp, result)
}

// DownloadDocument resolves a file ID to its server path and fetches the
// raw bytes.
func (c *APIClient) DownloadDocument(ctx context.Context, fileID string) ([]byte, error) {
	fileResult := new(fileResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("file_id", fileID).
		SetResult(fileResult).
		SetError(fileResult).
		Get("/getFile")
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file: %w", err)
	}
	if resp.IsError() || !fileResult.OK {
		return nil, fmt.Errorf("telegram api error: code=%d, message=%s", fileResult.ErrorCode, fileResult.Description)
	}
	if fileResult.Result.FilePath == "" {
		return nil, fmt.Errorf("telegram api returned empty file path for %s", fileID)
	}

	download, err := c.fileClient.R().
		SetContext(ctx).
		Get("/" + fileResult.Result.FilePath)
	if err != nil {
		return nil, fmt.Errorf("download telegram file: %w", err)
	}
	if download.IsError() {
		return nil, fmt.Errorf("download telegram file: status=%d", download.StatusCode())
	}

	return download.Body(), nil
}

func checkAPIResponse(resp *resty.Response, result *apiResponse) error {
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram api error: code=%d, message=%s", result.ErrorCode, result.Description)
	}
	return nil
}
