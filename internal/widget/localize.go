package widget

// locale holds the handful of widget-authored strings. Backend replies
// arrive already localized; only locally created messages need this.
type locale struct {
	Welcome      string
	SessionReset string
	GenericError string
	OperatorOn   string
	OperatorOff  string
}

var locales = map[string]locale{
	"az": {
		Welcome:      "Salam! Sizə necə kömək edə bilərəm?",
		SessionReset: "Sessiya sıfırlandı, zəhmət olmasa yenidən yazın.",
		GenericError: "Xəta baş verdi, bir az sonra yenidən cəhd edin.",
		OperatorOn:   "Operator rejimi aktivdir. Operator tezliklə cavab verəcək.",
		OperatorOff:  "Operator rejimi söndürüldü. AI cavab verəcək.",
	},
	"en": {
		Welcome:      "Hi! How can I help you?",
		SessionReset: "Your session was reset, please try again.",
		GenericError: "Something went wrong, please try again shortly.",
		OperatorOn:   "Operator mode is on. A human will reply soon.",
		OperatorOff:  "Operator mode is off. The AI will reply.",
	},
	"ru": {
		Welcome:      "Здравствуйте! Чем могу помочь?",
		SessionReset: "Сессия была сброшена, пожалуйста, напишите снова.",
		GenericError: "Произошла ошибка, попробуйте немного позже.",
		OperatorOn:   "Режим оператора включён. Оператор скоро ответит.",
		OperatorOff:  "Режим оператора выключен. Отвечает AI.",
	},
}

func localize(lang string) locale {
	if l, ok := locales[lang]; ok {
		return l
	}
	return locales["en"]
}
