package bot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/otabekdev/restockbot/internal/config"
	"github.com/otabekdev/restockbot/internal/domain/models"
	"github.com/otabekdev/restockbot/internal/report"
	"github.com/otabekdev/restockbot/internal/session"
	"github.com/otabekdev/restockbot/pkg/clients/telegram"
)

type fakeClient struct {
	messages    []telegram.SendMessageRequest
	documents   []telegram.SendDocumentRequest
	answered    []string
	downloadFor map[string][]byte
	downloadErr error
}

func (f *fakeClient) SendMessage(_ context.Context, req telegram.SendMessageRequest) error {
	f.messages = append(f.messages, req)
	return nil
}

func (f *fakeClient) SendDocument(_ context.Context, req telegram.SendDocumentRequest) error {
	f.documents = append(f.documents, req)
	return nil
}

func (f *fakeClient) AnswerCallbackQuery(_ context.Context, callbackID string) error {
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeClient) DownloadDocument(_ context.Context, fileID string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.downloadFor[fileID], nil
}

func (f *fakeClient) lastMessage(t *testing.T) telegram.SendMessageRequest {
	t.Helper()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

type fakeAllowList struct {
	allowed map[string]bool
	added   []string
	removed []string
	err     error
}

func (f *fakeAllowList) List(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var phones []string
	for phone := range f.allowed {
		phones = append(phones, phone)
	}
	return phones, nil
}

func (f *fakeAllowList) Contains(_ context.Context, phone string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[phone], nil
}

func (f *fakeAllowList) Add(_ context.Context, phone string) error {
	f.added = append(f.added, phone)
	return nil
}

func (f *fakeAllowList) Remove(_ context.Context, phone string) error {
	f.removed = append(f.removed, phone)
	return nil
}

type fakeActivity struct {
	records []models.ActivityRecord
	recent  []models.ActivityRecord
	err     error
}

func (f *fakeActivity) RecordActivity(_ context.Context, record models.ActivityRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeActivity) Summary(context.Context, time.Time) (models.ActivitySummary, error) {
	return models.ActivitySummary{}, nil
}

func (f *fakeActivity) ListRecent(context.Context, int64) ([]models.ActivityRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recent, nil
}

func (f *fakeActivity) events() []string {
	var events []string
	for _, r := range f.records {
		events = append(events, r.Event)
	}
	return events
}

type passthroughProcessor struct{}

func (passthroughProcessor) Process(*report.Table, models.Parameters) ([]byte, error) {
	return []byte("workbook"), nil
}

const (
	testChatID     = int64(1001)
	allowedPhone   = "+998901234567"
	adminPhone     = "+998900000001"
	testDocumentID = "doc-file-id"
)

type fixture struct {
	svc       *TelegramService
	client    *fakeClient
	allowList *fakeAllowList
	activity  *fakeActivity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := &fakeClient{downloadFor: map[string][]byte{testDocumentID: stockWorkbook(t)}}
	allowList := &fakeAllowList{allowed: map[string]bool{allowedPhone: true, adminPhone: true}}
	activity := &fakeActivity{}

	sessions := session.NewManager(func() *session.Machine {
		return session.NewMachine(passthroughProcessor{}, nil)
	})

	cfg := config.TelegramConfig{BotToken: "token", AdminPhone: adminPhone}
	svc := NewTelegramService(cfg, client, sessions, allowList, activity, nil)

	return &fixture{svc: svc, client: client, allowList: allowList, activity: activity}
}

func stockWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"Артикул", "Номенклатура"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func textUpdate(chatID int64, text string) models.Update {
	return models.Update{Message: &models.Message{
		Chat: models.Chat{ID: chatID},
		From: &models.User{Username: "operator"},
		Text: text,
	}}
}

func contactUpdate(chatID int64, phone string) models.Update {
	return models.Update{Message: &models.Message{
		Chat:    models.Chat{ID: chatID},
		Contact: &models.Contact{PhoneNumber: phone},
	}}
}

func documentUpdate(chatID int64) models.Update {
	return models.Update{Message: &models.Message{
		Chat:     models.Chat{ID: chatID},
		Document: &models.DocumentRef{FileID: testDocumentID, FileName: "report.xlsx"},
	}}
}

func callbackUpdate(chatID int64, data string) models.Update {
	return models.Update{CallbackQuery: &models.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &models.Message{Chat: models.Chat{ID: chatID}},
	}}
}

func verify(t *testing.T, fx *fixture, chatID int64, phone string) {
	t.Helper()
	require.NoError(t, fx.svc.HandleUpdate(context.Background(), contactUpdate(chatID, phone)))
	require.Contains(t, fx.client.lastMessage(t).Text, "Перезапуск процесса")
}

func TestUnverifiedUserIsAskedForContact(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.svc.HandleUpdate(context.Background(), textUpdate(testChatID, "привет")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "поделитесь своим номером телефона")
}

func TestContactVerificationAllowed(t *testing.T) {
	fx := newFixture(t)

	verify(t, fx, testChatID, allowedPhone)
	assert.Contains(t, fx.activity.events(), "contact_shared")
}

func TestContactVerificationNormalizesPhone(t *testing.T) {
	fx := newFixture(t)

	// Telegram sometimes delivers contacts without the leading plus.
	verify(t, fx, testChatID, "998 90 123-45-67")
}

func TestContactVerificationDenied(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.svc.HandleUpdate(context.Background(), contactUpdate(testChatID, "+77001112233")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "не авторизован")

	// Still unverified afterwards.
	require.NoError(t, fx.svc.HandleUpdate(context.Background(), textUpdate(testChatID, "30")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "поделитесь своим номером телефона")
}

func TestAllowListLookupFailure(t *testing.T) {
	fx := newFixture(t)
	fx.allowList.err = errors.New("sheets unavailable")

	require.NoError(t, fx.svc.HandleUpdate(context.Background(), contactUpdate(testChatID, allowedPhone)))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Не удалось проверить номер")
}

func TestFullDialogueDeliversWorkbook(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	verify(t, fx, testChatID, allowedPhone)

	require.NoError(t, fx.svc.HandleUpdate(ctx, documentUpdate(testChatID)))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Файл принят")

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "30")))
	msg := fx.client.lastMessage(t)
	assert.Contains(t, msg.Text, "Ламинат")
	require.Len(t, msg.Buttons, 2)
	assert.Equal(t, "Да", msg.Buttons[0].Text)
	assert.Equal(t, session.ChoiceYes, msg.Buttons[0].CallbackData)

	require.NoError(t, fx.svc.HandleUpdate(ctx, callbackUpdate(testChatID, session.ChoiceNo)))
	assert.Equal(t, []string{"cb-1"}, fx.client.answered)

	require.Len(t, fx.client.documents, 1)
	doc := fx.client.documents[0]
	assert.Equal(t, "processed_data.xlsx", doc.FileName)
	assert.Equal(t, []byte("workbook"), doc.Data)

	assert.Contains(t, fx.activity.events(), "file_uploaded")
	assert.Contains(t, fx.activity.events(), "completed")
}

func TestDocumentDownloadFailureKeepsSessionInPlace(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	verify(t, fx, testChatID, allowedPhone)
	fx.client.downloadErr = errors.New("file gone")

	require.NoError(t, fx.svc.HandleUpdate(ctx, documentUpdate(testChatID)))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Не удалось загрузить файл")

	// Retry after the transient failure still works.
	fx.client.downloadErr = nil
	require.NoError(t, fx.svc.HandleUpdate(ctx, documentUpdate(testChatID)))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Файл принят")
}

func TestStartCommandRestartsSession(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	verify(t, fx, testChatID, allowedPhone)
	require.NoError(t, fx.svc.HandleUpdate(ctx, documentUpdate(testChatID)))

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/start")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Перезапуск процесса")
	assert.Contains(t, fx.activity.events(), "started")
}

func TestCancelCommand(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	verify(t, fx, testChatID, allowedPhone)
	require.NoError(t, fx.svc.HandleUpdate(ctx, documentUpdate(testChatID)))

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/cancel")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Процесс отменен")
	assert.Contains(t, fx.activity.events(), "cancelled")
}

func TestHelpAndUnknownCommands(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/help")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Инструкция")

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/frobnicate")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Неизвестная команда")
}

func TestIgnoredUpdateShapes(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.svc.HandleUpdate(context.Background(), models.Update{UpdateID: 5}))
	assert.Empty(t, fx.client.messages)
	assert.Empty(t, fx.client.documents)
}

func TestAdminCommandsRejectedForNonAdmin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	verify(t, fx, testChatID, allowedPhone)

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/allowlist")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "только администратору")
	assert.Empty(t, fx.allowList.added)
}

func TestAdminAllowAndDeny(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	verify(t, fx, testChatID, adminPhone)

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/allow +998907654321")))
	assert.Equal(t, []string{"+998907654321"}, fx.allowList.added)
	assert.Contains(t, fx.client.lastMessage(t).Text, "добавлен")

	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/deny +998907654321")))
	assert.Equal(t, []string{"+998907654321"}, fx.allowList.removed)

	// Missing argument prompts usage instead of mutating the list.
	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/allow")))
	assert.Contains(t, fx.client.lastMessage(t).Text, "/allow +998901234567")
	assert.Len(t, fx.allowList.added, 1)
}

func TestAdminActivityExport(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.activity.recent = []models.ActivityRecord{
		{ChatID: 42, Username: "operator", PhoneNumber: allowedPhone, Event: "completed", At: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
	}

	verify(t, fx, testChatID, adminPhone)
	require.NoError(t, fx.svc.HandleUpdate(ctx, textUpdate(testChatID, "/activity")))

	require.Len(t, fx.client.documents, 1)
	doc := fx.client.documents[0]
	assert.Equal(t, "user_activity.xlsx", doc.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "operator", rows[1][1])
	assert.Equal(t, "completed", rows[1][3])
}

func TestActivityLogFailureDoesNotBlockDialogue(t *testing.T) {
	fx := newFixture(t)
	fx.activity.err = errors.New("mongo down")

	require.NoError(t, fx.svc.HandleUpdate(context.Background(), contactUpdate(testChatID, allowedPhone)))
	assert.Contains(t, fx.client.lastMessage(t).Text, "Перезапуск процесса")
}
