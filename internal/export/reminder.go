package export

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/payment"
)

// CountryPrefix is prepended to phone numbers that do not already carry it.
const CountryPrefix = "55"

const (
	keyGreeting = "reminder.greeting"
	keyPending  = "reminder.pending"
	keyAmount   = "reminder.amount"
	keyOverdue  = "reminder.overdue"
	keyClosing  = "reminder.closing"
)

var supported = []language.Tag{language.BrazilianPortuguese, language.English}

var matcher = language.NewMatcher(supported)

var decimalMarks = map[language.Tag]string{
	language.BrazilianPortuguese: ",",
	language.English:             ".",
}

func init() {
	pt := language.BrazilianPortuguese
	_ = message.SetString(pt, keyGreeting, "Olá, %s! Tudo bem?")
	_ = message.SetString(pt, keyPending, "Passando para avisar que identificamos uma pendência financeira referente a %s.")
	_ = message.SetString(pt, keyAmount, "Valor: R$ %s")
	_ = message.SetString(pt, keyOverdue, "Dias em atraso: %d")
	_ = message.SetString(pt, keyClosing, "Por favor, entre em contato para regularizar.")

	en := language.English
	_ = message.SetString(en, keyGreeting, "Hi %s, how are you?")
	_ = message.SetString(en, keyPending, "This is a note about an open payment for %s.")
	_ = message.SetString(en, keyAmount, "Amount: BRL %s")
	_ = message.SetString(en, keyOverdue, "Days overdue: %d")
	_ = message.SetString(en, keyClosing, "Please get in touch to settle it.")
}

// ReminderMessage builds the payment reminder text for r in the language
// closest to lang. amount is what the client still owes; month selects the
// billing period named in the text.
func ReminderMessage(r payment.Reminder, amount decimal.Decimal, month calendar.Date, lang language.Tag) string {
	_, index, _ := matcher.Match(lang)
	tag := supported[index]
	p := message.NewPrinter(tag)

	lines := []string{
		p.Sprintf(keyGreeting, FirstName(r.Client.Name)),
		"",
		p.Sprintf(keyPending, period(month)),
		"",
		p.Sprintf(keyAmount, formatAmount(p, tag, amount)),
	}
	if r.OverdueDays > 0 {
		lines = append(lines, p.Sprintf(keyOverdue, r.OverdueDays))
	}
	lines = append(lines, "", p.Sprintf(keyClosing))
	return strings.Join(lines, "\n")
}

// formatAmount renders amount with two decimals straight from the decimal
// digits. Only the whole part goes through the printer, for digit grouping.
func formatAmount(p *message.Printer, tag language.Tag, amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	_, cents, _ := strings.Cut(rounded.StringFixed(2), ".")
	whole := p.Sprint(number.Decimal(rounded.Truncate(0).IntPart()))
	return sign + whole + decimalMarks[tag] + cents
}

// period renders the billing month as MM/YYYY. Printers group digits in %d,
// so the year is formatted outside the catalog.
func period(month calendar.Date) string {
	return fmt.Sprintf("%02d/%d", int(month.Month), month.Year)
}

// FirstName returns the first word of a full name.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// NormalizePhone strips every non-digit and adds the country prefix when it
// is missing. An input without digits yields "".
func NormalizePhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, CountryPrefix) {
		return digits
	}
	return CountryPrefix + digits
}

// WhatsAppLink returns a wa.me link that opens a chat with phone prefilled
// with text. It returns "" when the phone has no digits.
func WhatsAppLink(phone, text string) string {
	to := NormalizePhone(phone)
	if to == "" {
		return ""
	}
	link := "https://wa.me/" + to
	if text == "" {
		return link
	}
	return link + "?text=" + url.QueryEscape(text)
}
