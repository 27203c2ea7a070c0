package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/pkg/clients/telegram"
)

const activityExportLimit = 1000

// handleAdminCommand executes admin-only commands. The second return value
// reports whether the command was recognized as an admin command at all;
// non-admin senders get a denial for recognized ones.
func (s *TelegramService) handleAdminCommand(ctx context.Context, chatID int64, command string, args []string) (string, bool, error) {
	switch command {
	case "/allowlist", "/allow", "/deny", "/activity":
	default:
		return "", false, nil
	}

	if s.verifiedPhone(chatID) != s.cfg.AdminPhone {
		return "Доступ запрещен. Команда доступна только администратору.", true, nil
	}

	switch command {
	case "/allowlist":
		phones, err := s.allowList.List(ctx)
		if err != nil {
			s.logger.Error("failed to list allow-list", zap.Error(err))
			return "Не удалось получить список номеров.", true, nil
		}
		if len(phones) == 0 {
			return "Список разрешенных номеров пуст.", true, nil
		}
		return "Разрешенные номера:\n" + strings.Join(phones, "\n"), true, nil

	case "/allow":
		if len(args) == 0 {
			return "Укажите номер: /allow +998901234567", true, nil
		}
		if err := s.allowList.Add(ctx, args[0]); err != nil {
			s.logger.Error("failed to add phone", zap.Error(err))
			return "Не удалось добавить номер.", true, nil
		}
		return fmt.Sprintf("Номер %s добавлен.", args[0]), true, nil

	case "/deny":
		if len(args) == 0 {
			return "Укажите номер: /deny +998901234567", true, nil
		}
		if err := s.allowList.Remove(ctx, args[0]); err != nil {
			s.logger.Error("failed to remove phone", zap.Error(err))
			return "Не удалось удалить номер.", true, nil
		}
		return fmt.Sprintf("Номер %s удален.", args[0]), true, nil

	case "/activity":
		payload, err := s.exportActivity(ctx)
		if err != nil {
			s.logger.Error("failed to export activity", zap.Error(err))
			return "Не удалось выгрузить отчет активности.", true, nil
		}
		err = s.client.SendDocument(ctx, telegram.SendDocumentRequest{
			ChatID:   chatID,
			FileName: "user_activity.xlsx",
			Caption:  "Отчет активности пользователей.",
			Data:     payload,
		})
		if err != nil {
			return "", true, fmt.Errorf("send activity export: %w", err)
		}
		return "", true, nil
	}

	return "", false, nil
}

// exportActivity renders the recent activity log as a single-sheet workbook.
func (s *TelegramService) exportActivity(ctx context.Context) ([]byte, error) {
	records, err := s.activity.ListRecent(ctx, activityExportLimit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Chat ID", "Username", "Phone", "Event", "At"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write activity header: %w", err)
	}

	for i, record := range records {
		row := []interface{}{
			record.ChatID,
			record.Username,
			record.PhoneNumber,
			record.Event,
			record.At.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("write activity row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize activity export: %w", err)
	}
	return buf.Bytes(), nil
}
