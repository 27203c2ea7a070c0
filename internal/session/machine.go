package session

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/internal/domain/models"
	"github.com/otabekdev/restockbot/internal/report"
)

// State identifies a stage of the replenishment dialogue.
type State string

const (
	StateAwaitingFile        State = "awaiting_file"
	StateAwaitingHorizonDays State = "awaiting_horizon_days"
	StateAwaitingBrandFlag   State = "awaiting_brand_flag"
	StateAwaitingPercentage  State = "awaiting_percentage"
	StateDone                State = "done"
	StateCancelled           State = "cancelled"
	StateUnauthorized        State = "unauthorized"
	StateFailed              State = "failed"
)

// Terminal reports whether the state has no outgoing transitions besides
// restart.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateCancelled, StateUnauthorized, StateFailed:
		return true
	}
	return false
}

// Event is one inbound dialogue occurrence.
type Event interface{ isEvent() }

// FileEvent carries an uploaded spreadsheet payload.
type FileEvent struct {
	Name string
	Data []byte
}

// TextEvent carries free-text operator input.
type TextEvent struct {
	Text string
}

// ChoiceEvent carries a discrete selection such as a pressed button.
type ChoiceEvent struct {
	ID string
}

// CancelEvent aborts the dialogue from any non-terminal state.
type CancelEvent struct{}

// RestartEvent returns the dialogue to the file stage from any state.
type RestartEvent struct{}

func (FileEvent) isEvent()    {}
func (TextEvent) isEvent()    {}
func (ChoiceEvent) isEvent()  {}
func (CancelEvent) isEvent()  {}
func (RestartEvent) isEvent() {}

// Choice IDs presented on the brand question.
const (
	ChoiceYes = "yes"
	ChoiceNo  = "no"
)

// Choice is a selectable option rendered alongside a prompt.
type Choice struct {
	ID    string
	Label string
}

// Document is a binary payload delivered back to the operator.
type Document struct {
	Name    string
	Caption string
	Data    []byte
}

// Reply is what the transport renders after an event was handled.
type Reply struct {
	Text     string
	Choices  []Choice
	Document *Document
	State    State
}

// Processor runs the computation pipeline over the collected table and
// parameters.
type Processor interface {
	Process(table *report.Table, params models.Parameters) ([]byte, error)
}

const outputFileName = "processed_data.xlsx"

var brandChoices = []Choice{
	{ID: ChoiceYes, Label: "Да"},
	{ID: ChoiceNo, Label: "Нет"},
}

// Machine is the finite-state conversation controller for one chat. It
// owns the collected parameters and the loaded table for the lifetime of
// the session and discards them on every terminal transition or restart.
type Machine struct {
	mu        sync.Mutex
	state     State
	params    models.Parameters
	table     *report.Table
	processor Processor
	logger    *zap.Logger
}

// NewMachine creates a machine in the awaiting-file state.
func NewMachine(processor Processor, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		state:     StateAwaitingFile,
		processor: processor,
		logger:    logger,
	}
}

// State returns the current dialogue state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Parameters returns a copy of the collected parameters.
func (m *Machine) Parameters() models.Parameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// Deny moves the session to the terminal unauthorized state. The identity
// check itself is the transport layer's job; the machine only records the
// outcome.
func (m *Machine) Deny() Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset(StateUnauthorized)
	return m.reply("Доступ запрещен. Ваш номер телефона не авторизован.")
}

// Handle advances the machine with one event and returns the reply to
// render. Validation failures never change the state; only structural
// failures during computation terminate the session.
func (m *Machine) Handle(event Event) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := event.(type) {
	case RestartEvent:
		m.reset(StateAwaitingFile)
		return m.reply("Перезапуск процесса. Пожалуйста, отправьте Excel файл, который вы хотите обработать.")
	case CancelEvent:
		if m.state.Terminal() {
			return m.promptCurrent()
		}
		m.reset(StateCancelled)
		return m.reply("Процесс отменен. Вы можете начать заново, набрав /start.")
	case FileEvent:
		if m.state == StateAwaitingFile {
			return m.handleFile(e)
		}
	case TextEvent:
		switch m.state {
		case StateAwaitingHorizonDays:
			return m.handleHorizonDays(e.Text)
		case StateAwaitingPercentage:
			return m.handlePercentage(e.Text)
		}
	case ChoiceEvent:
		if m.state == StateAwaitingBrandFlag {
			return m.handleBrandChoice(e.ID)
		}
	}

	// Anything unexpected re-presents the current stage, never advances.
	return m.promptCurrent()
}

func (m *Machine) handleFile(e FileEvent) Reply {
	table, err := report.Load(bytes.NewReader(e.Data))
	if err != nil {
		m.logger.Warn("stock report rejected", zap.String("file", e.Name), zap.Error(err))
		return m.reply(fmt.Sprintf("Не удалось прочитать файл (%v). Пожалуйста, отправьте корректный .xlsx файл.", err))
	}

	m.table = table
	m.state = StateAwaitingHorizonDays
	return m.reply("Файл принят. Введите количество дней для расчета периода продаж.")
}

func (m *Machine) handleHorizonDays(raw string) Reply {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || days <= 0 {
		// Echo the raw input to ease troubleshooting of malformed messages.
		return m.reply(fmt.Sprintf("Пожалуйста, введите допустимое число дней. (Отладка: получено '%s')", raw))
	}

	m.params.HorizonDays = days
	m.state = StateAwaitingBrandFlag
	return m.promptCurrent()
}

func (m *Machine) handleBrandChoice(id string) Reply {
	switch id {
	case ChoiceYes:
		m.params.AdjustedBrand = true
		m.state = StateAwaitingPercentage
		return m.reply("Обработка как бренд ламината. Пожалуйста, введите процент корректировки (от 0 до 1):")
	case ChoiceNo:
		m.params.AdjustedBrand = false
		m.params.AdjustmentPercentage = 1
		return m.compute()
	default:
		return m.promptCurrent()
	}
}

func (m *Machine) handlePercentage(raw string) Reply {
	pct, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || pct < 0 || pct > 1 {
		return m.reply(fmt.Sprintf("Пожалуйста, введите корректный процент от 0 до 1. (Отладка: получено '%s')", raw))
	}

	m.params.AdjustmentPercentage = pct
	return m.compute()
}

func (m *Machine) compute() Reply {
	payload, err := m.processor.Process(m.table, m.params)
	if err != nil {
		var schemaErr *report.SchemaError
		var formatErr *report.DataFormatError

		m.logger.Error("report processing failed", zap.Error(err))
		m.reset(StateFailed)

		if errors.As(err, &schemaErr) || errors.As(err, &formatErr) {
			// Retrying against the same malformed report cannot succeed.
			return m.reply(fmt.Sprintf("Файл не соответствует ожидаемому формату: %v. Отправьте другой файл командой /start.", err))
		}
		return m.reply("Произошла непредвиденная ошибка при обработке файла. Вы можете начать заново командой /start.")
	}

	m.reset(StateDone)
	return Reply{
		Text:  "Обработка завершена.",
		State: StateDone,
		Document: &Document{
			Name:    outputFileName,
			Caption: "📎 Вот ваш обработанный файл.",
			Data:    payload,
		},
	}
}

func (m *Machine) promptCurrent() Reply {
	switch m.state {
	case StateAwaitingFile:
		return m.reply("Пожалуйста, отправьте Excel файл с отчетом по остаткам.")
	case StateAwaitingHorizonDays:
		return m.reply("Введите количество дней для расчета периода продаж.")
	case StateAwaitingBrandFlag:
		return Reply{Text: "Этот бренд Ламинат?", Choices: brandChoices, State: m.state}
	case StateAwaitingPercentage:
		return m.reply("Введите процент корректировки (от 0 до 1).")
	default:
		return m.reply("Сессия завершена. Наберите /start, чтобы начать заново.")
	}
}

// reset discards the session data and moves to the given state. No
// parameter survives a terminal transition or a restart.
func (m *Machine) reset(to State) {
	m.params = models.Parameters{}
	m.table = nil
	m.state = to
}

func (m *Machine) reply(text string) Reply {
	return Reply{Text: text, State: m.state}
}
