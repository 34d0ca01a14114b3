package watering

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English text.
const (
	msgToday    = "Water today!"
	msgTomorrow = "Water tomorrow"
	msgInDays   = "Water in %d days"
)

var labels = newLabelCatalog()

func newLabelCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	translations := map[language.Tag][3]string{
		language.English: {msgToday, msgTomorrow, msgInDays},
		language.Spanish: {"¡Regar hoy!", "Regar mañana", "Regar en %d días"},
		language.French:  {"Arroser aujourd'hui !", "Arroser demain", "Arroser dans %d jours"},
	}
	for tag, msgs := range translations {
		// SetString only fails on malformed keys, which are constants here.
		_ = b.SetString(tag, msgToday, msgs[0])
		_ = b.SetString(tag, msgTomorrow, msgs[1])
		_ = b.SetString(tag, msgInDays, msgs[2])
	}
	return b
}

// Languages lists the languages with translated labels.
func Languages() []language.Tag {
	return labels.Languages()
}

// Label renders the urgency text for days in lang. Languages without a
// translation get English.
func Label(days int, lang language.Tag) string {
	p := message.NewPrinter(lang, message.Catalog(labels))
	switch Classify(days) {
	case UrgencyToday:
		return p.Sprintf(msgToday)
	case UrgencyTomorrow:
		return p.Sprintf(msgTomorrow)
	default:
		return p.Sprintf(msgInDays, days)
	}
}
