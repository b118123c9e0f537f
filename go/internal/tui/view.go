package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mcdev12/boxoffice/go/internal/checkout"
	"github.com/mcdev12/boxoffice/go/internal/events"
	"github.com/mcdev12/boxoffice/go/internal/models"
)

// the countdown turns red inside the last minute
const warningThreshold = time.Minute

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n\n")

	switch m.screen {
	case ScreenLoading:
		b.WriteString(m.styles.faint.Render("Loading event..."))
	case ScreenEvent:
		b.WriteString(m.viewEvent())
	case ScreenSelect:
		b.WriteString(m.viewSelect())
	case ScreenBooking:
		b.WriteString(m.viewBooking())
	case ScreenPayment:
		b.WriteString(m.viewPayment())
	case ScreenDone:
		b.WriteString(m.viewDone())
	}

	if m.notice != nil {
		b.WriteString("\n\n")
		b.WriteString(m.viewNotice())
	}

	if dialog := m.viewDialog(); dialog != "" {
		b.WriteString("\n\n")
		b.WriteString(dialog)
	}

	b.WriteString("\n\n")
	b.WriteString(m.styles.help.Render(m.helpText()))
	return b.String()
}

func (m Model) viewHeader() string {
	if m.event == nil {
		return m.styles.title.Render("boxoffice")
	}
	title := m.styles.title.Render(m.event.Title)
	var details []string
	if m.event.StartDate != "" {
		details = append(details, m.event.StartDate)
	}
	if m.event.Location != "" {
		details = append(details, m.event.Location)
	}
	if len(details) == 0 {
		return title
	}
	return title + "\n" + m.styles.faint.Render(strings.Join(details, " · "))
}

func (m Model) viewCountdown() string {
	if m.display == "" {
		return ""
	}
	style := m.styles.countdown
	if m.warning {
		style = m.styles.warning
	}
	return "Complete your booking within " + style.Render(m.display)
}

func (m Model) viewEvent() string {
	if m.event == nil {
		return ""
	}
	return m.event.Description
}

func (m Model) viewSelect() string {
	if m.event == nil || len(m.event.TicketTypes) == 0 {
		return m.styles.faint.Render("No tickets on sale.")
	}

	var b strings.Builder
	b.WriteString("Select tickets\n\n")
	total := 0.0
	for i, tt := range m.event.TicketTypes {
		cursor := "  "
		line := fmt.Sprintf("%-16s %12s   x%d", tt.Type, FormatPrice(tt.Price), m.quantities[tt.ID])
		if tt.Quantity == 0 {
			line += "  " + m.styles.faint.Render("sold out")
		}
		if i == m.cursor {
			cursor = "> "
			line = m.styles.selected.Render(line)
		}
		b.WriteString(cursor + line + "\n")
		total += tt.Price * float64(m.quantities[tt.ID])
	}
	if len(m.selectedLines()) > 0 {
		b.WriteString("\nTotal: " + FormatPrice(total))
	}
	return b.String()
}

func (m Model) viewCart() string {
	if m.cart == nil {
		return ""
	}
	var b strings.Builder
	for _, line := range m.cart.CartDetails {
		b.WriteString(fmt.Sprintf("%-16s x%-3d %12s\n", line.TicketType.Type, line.Quantity, FormatPrice(line.Subtotal())))
	}
	b.WriteString(fmt.Sprintf("%-21s %12s", "Total", FormatPrice(m.cart.TotalPrice())))
	return b.String()
}

func (m Model) viewBooking() string {
	labels := [inputCount]string{"Receiver name", "Phone", "Email"}
	fields := [inputCount]string{checkout.FieldReceiverName, checkout.FieldReceiverPhone, checkout.FieldReceiverEmail}

	var b strings.Builder
	b.WriteString(m.viewCountdown())
	b.WriteString("\n\n")
	b.WriteString(m.viewCart())
	b.WriteString("\n\n")
	for i := range m.inputs {
		b.WriteString(labels[i] + "\n")
		b.WriteString(m.inputs[i].View() + "\n")
		if msg, ok := m.fieldErrors[fields[i]]; ok {
			b.WriteString(m.styles.errorText.Render(msg) + "\n")
		}
	}
	return b.String()
}

func (m Model) viewPayment() string {
	var b strings.Builder
	b.WriteString(m.viewCountdown())
	b.WriteString("\n\n")
	b.WriteString(m.viewCart())
	b.WriteString("\n\nPayment method\n")
	for i, method := range []models.PaymentMethod{models.PaymentMethodVNPay, models.PaymentMethodCash} {
		marker := "( )"
		if method == m.method {
			marker = "(x)"
		}
		b.WriteString(fmt.Sprintf("%s %d. %s\n", marker, i+1, method))
	}
	return b.String()
}

func (m Model) viewDone() string {
	if m.order == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.success.Render("Order placed"))
	if m.order.OrderID != "" {
		b.WriteString(" #" + m.order.OrderID)
	}
	if m.order.Message != "" {
		b.WriteString("\n" + m.order.Message)
	}
	if m.order.PaymentURL != "" {
		b.WriteString("\nComplete your payment at:\n" + m.order.PaymentURL)
	}
	return b.String()
}

func (m Model) viewNotice() string {
	switch m.notice.level {
	case events.NotificationError:
		return m.styles.errorText.Render(m.notice.message)
	case events.NotificationSuccess:
		return m.styles.success.Render(m.notice.message)
	default:
		return m.styles.info.Render(m.notice.message)
	}
}

func (m Model) viewDialog() string {
	var body string
	switch m.dialog {
	case DialogLeave:
		title, question := "Leave booking?", "Are you sure you want to leave?"
		var details []string
		confirm, cancel := "Leave", "Stay"
		if m.leave != nil {
			title, question, details = m.leave.Title, m.leave.Question, m.leave.Details
			confirm, cancel = m.leave.ConfirmText, m.leave.CancelText
		}
		lines := []string{m.styles.title.Render(title), question}
		for _, d := range details {
			lines = append(lines, "• "+d)
		}
		lines = append(lines, "", fmt.Sprintf("[y] %s   [n] %s", confirm, cancel))
		body = strings.Join(lines, "\n")

	case DialogTimeout:
		title, message := "Session expired", "Your booking session has expired."
		if m.expired != nil {
			title, message = m.expired.Title, m.expired.Message
		}
		body = strings.Join([]string{
			m.styles.warning.Render(title),
			message,
			"",
			"[enter] Select tickets again",
		}, "\n")

	case DialogResume:
		items := 0
		if m.offer != nil && m.offer.Cart != nil {
			items = m.offer.Cart.TotalQuantity()
		}
		body = strings.Join([]string{
			m.styles.title.Render("Continue your booking?"),
			fmt.Sprintf("You have %d ticket(s) held for %s.", items, m.styles.countdown.Render(m.display)),
			"",
			"[c] Continue   [d] Start over",
		}, "\n")

	default:
		return ""
	}

	box := m.styles.dialog
	if m.width > 0 {
		box = box.MaxWidth(m.width)
	}
	return lipgloss.PlaceHorizontal(max(m.width, lipgloss.Width(box.Render(body))), lipgloss.Center, box.Render(body))
}

func (m Model) helpText() string {
	k := m.keys
	switch m.dialog {
	case DialogLeave:
		return helpLine(k.Yes, k.No)
	case DialogTimeout:
		return helpLine(k.Confirm)
	case DialogResume:
		return helpLine(k.Continue, k.Discard)
	}
	switch m.screen {
	case ScreenSelect:
		return helpLine(k.Up, k.Down, k.Increase, k.Decrease, k.Confirm, k.ForceQuit)
	case ScreenBooking:
		return helpLine(k.NextField, k.Submit, k.Leave, k.ForceQuit)
	case ScreenPayment:
		return helpLine(k.MethodOnline, k.MethodCash, k.Confirm, k.Leave, k.ForceQuit)
	case ScreenDone, ScreenEvent:
		return helpLine(k.Quit)
	}
	return helpLine(k.ForceQuit)
}

// FormatPrice renders an amount in dong with thousands separators
func FormatPrice(amount float64) string {
	s := fmt.Sprintf("%.0f", amount)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out) + " ₫"
	}
	return string(out) + " ₫"
}
