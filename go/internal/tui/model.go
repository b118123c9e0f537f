package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdev12/boxoffice/go/internal/checkout"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
	"github.com/mcdev12/boxoffice/go/internal/reservation"
	"github.com/mcdev12/boxoffice/go/internal/routes"
	"github.com/rs/zerolog/log"
)

// Screen is the checkout step being shown
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenEvent
	ScreenSelect
	ScreenBooking
	ScreenPayment
	ScreenDone
)

// Dialog is the modal shown over the current screen
type Dialog int

const (
	DialogNone Dialog = iota
	DialogLeave
	DialogTimeout
	DialogResume
)

const (
	inputName = iota
	inputPhone
	inputEmail
	inputCount
)

type notice struct {
	level   events.NotificationLevel
	message string
}

// Model is the bubbletea model of the checkout screens
type Model struct {
	ctx     context.Context
	flow    Flow
	eventID string
	sub     *events.Subscription
	styles  styles
	keys    KeyMap

	screen Screen
	dialog Dialog
	width  int

	event *models.Event
	cart  *models.Cart
	offer *reservation.ResumeOffer
	coord *reservation.Coordinator

	// ticket selection
	cursor     int
	quantities map[models.ID]int

	inputs      [inputCount]textinput.Model
	focused     int
	fieldErrors checkout.FieldErrors

	method models.PaymentMethod
	order  *checkout.OrderResult

	display  string
	warning  bool
	expired  *events.ReservationExpiredPayload
	leave    *events.LeaveRequestedPayload
	notice   *notice
	busy     bool
	quitting bool
	// quitAfterLeave is set while the leave dialog was raised by a quit key
	quitAfterLeave bool
}

// NewModel builds the screens for eventID. sub delivers the bus events
// the screens react to; the model owns it from here on.
func NewModel(ctx context.Context, flow Flow, eventID string, sub *events.Subscription, theme Theme) Model {
	m := Model{
		ctx:        ctx,
		flow:       flow,
		eventID:    eventID,
		sub:        sub,
		styles:     newStyles(theme),
		keys:       DefaultKeyMap,
		screen:     ScreenLoading,
		quantities: make(map[models.ID]int),
		method:     models.PaymentMethodVNPay,
	}

	placeholders := [inputCount]string{"Full name", "Phone number", "Email (optional)"}
	limits := [inputCount]int{100, 11, 254}
	for i := range m.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		in.Width = 40
		m.inputs[i] = in
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{enterEvent(m.ctx, m.flow, m.eventID)}
	if m.sub != nil {
		cmds = append(cmds, listenForBusEvent(m.sub.C))
	}
	return tea.Batch(cmds...)
}

func (m Model) Screen() Screen { return m.screen }
func (m Model) Dialog() Dialog { return m.dialog }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m.guardedQuit()
		}
		if m.dialog != DialogNone {
			return m.handleDialogKeys(msg)
		}
		return m.handleScreenKeys(msg)

	case eventLoadedMsg:
		return m.handleEventLoaded(msg)

	case tea.FocusMsg:
		if m.coord == nil {
			return m, nil
		}
		return m, resumeCountdown(m.ctx, m.coord)

	case leftMsg:
		m.busy = false
		if m.quitAfterLeave {
			return m.quit()
		}
		return m.navigate(msg.nav)

	case navigatedMsg:
		m.busy = false
		if msg.err != nil {
			return m.handleError(msg.err), nil
		}
		return m.navigate(msg.nav)

	case bookingLoadedMsg:
		return m.handleBookingLoaded(msg)

	case orderPlacedMsg:
		m.busy = false
		if msg.err != nil {
			if msg.result != nil && msg.result.Message != "" {
				m.notice = &notice{level: events.NotificationError, message: msg.result.Message}
				return m, nil
			}
			return m.handleError(msg.err), nil
		}
		m.order = msg.result
		if msg.result.Next.Proceed {
			return m.navigate(msg.result.Next)
		}
		// online payment: stay and show the payment page link
		m.screen = ScreenDone
		return m, nil

	case busEventMsg:
		m = m.handleBusEvent(msg.event)
		if m.sub == nil || m.quitting {
			return m, nil
		}
		return m, listenForBusEvent(m.sub.C)

	case countdownStoppedMsg:
		if msg.err != nil {
			log.Error().Err(msg.err).Msg("countdown stopped")
		}
		return m, nil
	}

	if m.screen == ScreenBooking {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m Model) handleError(err error) Model {
	var fieldErrs checkout.FieldErrors
	if errors.As(err, &fieldErrs) {
		m.fieldErrors = fieldErrs
		return m
	}
	m.notice = &notice{level: events.NotificationError, message: err.Error()}
	return m
}

func (m Model) handleEventLoaded(msg eventLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.view != nil {
		m.event = msg.view.Event
	}
	if msg.err != nil {
		m.screen = ScreenEvent
		return m.handleError(msg.err), nil
	}

	if msg.view.Offer != nil {
		m.screen = ScreenEvent
		m.offer = msg.view.Offer
		m.dialog = DialogResume
		remaining := m.offer.Remaining()
		m.display = reservation.FormatRemaining(remaining)
		return m, runOffer(m.ctx, m.offer)
	}
	return m.navigate(msg.view.Next)
}

func (m Model) handleBookingLoaded(msg bookingLoadedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		return m.handleError(msg.err), nil
	}

	view := msg.view
	m.event = view.Event
	m.cart = view.Cart
	m.fieldErrors = nil
	if msg.payment {
		m.screen = ScreenPayment
	} else {
		m.screen = ScreenBooking
		if view.Receiver != nil {
			m.inputs[inputName].SetValue(view.Receiver.Name)
			m.inputs[inputPhone].SetValue(view.Receiver.Phone)
			m.inputs[inputEmail].SetValue(view.Receiver.Email)
		}
	}

	var cmds []tea.Cmd
	if !msg.payment {
		cmds = append(cmds, m.focus(inputName))
	}
	if view.Coordinator != nil {
		snap := view.Coordinator.Snapshot()
		m.display = snap.Display
		m.warning = snap.Remaining < warningThreshold
		if view.Coordinator != m.coord {
			m.coord = view.Coordinator
			cmds = append(cmds, runCountdown(m.ctx, m.coord))
		}
	}
	return m, tea.Batch(cmds...)
}

// navigate moves to the step nav points at
func (m Model) navigate(nav routes.Navigation) (tea.Model, tea.Cmd) {
	if !nav.Proceed {
		return m, nil
	}
	m.dialog = DialogNone
	m.notice = nil
	m.quitAfterLeave = false

	switch nav.Route {
	case routes.SelectTicket(m.eventID):
		m.screen = ScreenSelect
		m.quantities = make(map[models.ID]int)
		m.cursor = 0
		m.coord = nil
		m.expired = nil
		for i := range m.inputs {
			m.inputs[i].SetValue("")
		}
		return m, nil
	case routes.BookingForm(m.eventID):
		m.busy = true
		return m, openBooking(m.ctx, m.flow, m.eventID, nav.Carried)
	case routes.Payment(m.eventID):
		m.busy = true
		return m, openPayment(m.ctx, m.flow, m.eventID, nav.Carried)
	default:
		m.screen = ScreenDone
		return m, nil
	}
}

func (m Model) handleBusEvent(ev *events.Event) Model {
	if ev == nil {
		return m
	}

	switch ev.Type {
	case events.EventTypeTimerTick:
		if !m.watching(ev.Topic) {
			return m
		}
		var p events.TimerTickPayload
		if err := ev.Decode(&p); err == nil {
			m.display = p.Display
			m.warning = time.Duration(p.TimeRemainingSec)*time.Second < warningThreshold
		}

	case events.EventTypeReservationExpired:
		if !m.watching(ev.Topic) {
			return m
		}
		var p events.ReservationExpiredPayload
		if err := ev.Decode(&p); err == nil {
			m.expired = &p
			m.dialog = DialogTimeout
			m.quitAfterLeave = false
			m.display = reservation.FormatRemaining(0)
			m.offer = nil
		}

	case events.EventTypeLeaveRequested:
		if !m.watching(ev.Topic) {
			return m
		}
		var p events.LeaveRequestedPayload
		if err := ev.Decode(&p); err == nil {
			m.leave = &p
			m.dialog = DialogLeave
		}

	case events.EventTypeNotification:
		var p events.NotificationPayload
		if err := ev.Decode(&p); err == nil {
			m.notice = &notice{level: p.Level, message: p.Message}
		}

	case events.EventTypeAuthRequired:
		m.notice = &notice{level: events.NotificationError, message: "Please log in to continue."}
	}
	return m
}

// watching reports whether cartID is the cart on screen
func (m Model) watching(cartID string) bool {
	switch {
	case m.coord != nil:
		return m.coord.CartID() == cartID
	case m.offer != nil:
		return m.offer.CartID == cartID
	}
	return false
}

func (m Model) handleDialogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.dialog {
	case DialogTimeout:
		// the only way out is back to ticket selection
		if key.Matches(msg, m.keys.Confirm) {
			return m.navigate(routes.To(routes.SelectTicket(m.eventID)))
		}

	case DialogLeave:
		switch {
		case key.Matches(msg, m.keys.Yes):
			if m.coord == nil {
				return m.navigate(routes.To(routes.SelectTicket(m.eventID)))
			}
			m.busy = true
			return m, confirmLeave(m.ctx, m.coord)
		case key.Matches(msg, m.keys.No):
			m.dialog = DialogNone
			m.quitAfterLeave = false
			if m.coord != nil {
				return m.navigate(m.coord.DeclineLeave())
			}
		}

	case DialogResume:
		switch {
		case key.Matches(msg, m.keys.Continue):
			nav, err := m.offer.Accept()
			if err != nil {
				m.dialog = DialogNone
				return m.handleError(err), nil
			}
			m.offer = nil
			return m.navigate(nav)
		case key.Matches(msg, m.keys.Discard):
			offer := m.offer
			m.offer = nil
			m.busy = true
			return m, discardOffer(m.ctx, offer)
		}
	}
	return m, nil
}

func (m Model) handleScreenKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch m.screen {
	case ScreenSelect:
		return m.handleSelectKeys(msg)

	case ScreenBooking:
		switch {
		case key.Matches(msg, m.keys.Leave):
			return m.requestLeave(), nil
		case key.Matches(msg, m.keys.NextField):
			cmd := m.focus((m.focused + 1) % inputCount)
			return m, cmd
		case key.Matches(msg, m.keys.PrevField):
			cmd := m.focus((m.focused + inputCount - 1) % inputCount)
			return m, cmd
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Confirm):
			if m.focused < inputCount-1 {
				cmd := m.focus(m.focused + 1)
				return m, cmd
			}
			return m.submit()
		}
		return m.updateInputs(msg)

	case ScreenPayment:
		switch {
		case key.Matches(msg, m.keys.Leave):
			return m.requestLeave(), nil
		case key.Matches(msg, m.keys.Quit):
			return m.guardedQuit()
		case key.Matches(msg, m.keys.MethodOnline):
			m.method = models.PaymentMethodVNPay
		case key.Matches(msg, m.keys.MethodCash):
			m.method = models.PaymentMethodCash
		case key.Matches(msg, m.keys.Confirm):
			m.busy = true
			return m, placeOrder(m.ctx, m.flow, m.method)
		}

	case ScreenDone, ScreenEvent:
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
	}
	return m, nil
}

func (m Model) handleSelectKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.event == nil || len(m.event.TicketTypes) == 0 {
		return m, nil
	}
	types := m.event.TicketTypes
	current := types[m.cursor]

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(types)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Increase):
		if current.Quantity > 0 && m.quantities[current.ID] < current.Quantity {
			m.quantities[current.ID]++
		}
	case key.Matches(msg, m.keys.Decrease):
		if m.quantities[current.ID] > 0 {
			m.quantities[current.ID]--
		}
	case key.Matches(msg, m.keys.Confirm):
		selected := make(map[models.ID]int, len(m.quantities))
		for id, qty := range m.quantities {
			selected[id] = qty
		}
		m.busy = true
		return m, selectTickets(m.ctx, m.flow, m.eventID, selected)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.sub != nil {
		m.sub.Close()
	}
	return m, tea.Quit
}

// guardedQuit quits, unless a reservation is still counting down: then the
// leave dialog comes first and the quit follows a confirmed leave
func (m Model) guardedQuit() (tea.Model, tea.Cmd) {
	if m.dialog == DialogLeave {
		return m, nil
	}
	if m.coord != nil && m.coord.State() == reservation.StateRunning {
		m = m.requestLeave()
		if m.dialog == DialogLeave {
			m.quitAfterLeave = true
			return m, nil
		}
	}
	return m.quit()
}

// requestLeave asks before abandoning a running reservation
func (m Model) requestLeave() Model {
	if m.coord == nil {
		return m
	}
	if err := m.coord.RequestLeave(); err != nil {
		// nothing left to protect
		m.dialog = DialogNone
		return m
	}
	m.dialog = DialogLeave
	return m
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	receiver := routes.Receiver{
		Name:  m.inputs[inputName].Value(),
		Phone: m.inputs[inputPhone].Value(),
		Email: m.inputs[inputEmail].Value(),
	}
	m.fieldErrors = nil
	m.busy = true
	return m, submitBooking(m.ctx, m.flow, m.eventID, receiver)
}

func (m *Model) focus(index int) tea.Cmd {
	m.focused = index
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == index {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for i := range m.inputs {
		var cmd tea.Cmd
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// selectedLines lists the chosen ticket types in event order
func (m Model) selectedLines() []models.TicketType {
	if m.event == nil {
		return nil
	}
	var out []models.TicketType
	for _, tt := range m.event.TicketTypes {
		if m.quantities[tt.ID] > 0 {
			out = append(out, tt)
		}
	}
	return out
}
