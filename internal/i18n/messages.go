// Package i18n renders the user-facing texts workers publish to the chat
// process. Messages never expose internal errors; failures always name the
// support contact.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English, // first tag is the fallback
	language.Russian,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

// Normalize maps an arbitrary locale string ("ru-RU", "es_MX", "en") to one
// of the supported base languages, falling back to English.
func Normalize(locale string) string {
	if locale == "" {
		return "en"
	}
	tag, _ := language.MatchStrings(matcher, locale)
	base, _ := tag.Base()
	switch base.String() {
	case "ru":
		return "ru"
	case "es":
		return "es"
	default:
		return "en"
	}
}

const (
	msgProcessing     = "processing"
	msgDownloading    = "downloading"
	msgRepairing      = "repairing"
	msgRestoring      = "restoring"
	msgColorizing     = "colorizing"
	msgUpgrading      = "upgrading"
	msgApplyingEffect = "applying_effect"
	msgVideoSubmitted = "video_submitted"
	msgCompleted      = "completed"
	msgFailed         = "failed"
	msgNoBalance      = "no_balance"
	msgCreaseChoice   = "crease_choice"
	msgCreaseContinue = "crease_continue"
	msgCreaseCancel   = "crease_cancel"
)

var messages = map[string]map[string]string{
	msgProcessing: {
		"en": "Working on your photo, this can take a minute...",
		"ru": "Работаю над вашим фото, это может занять минуту...",
		"es": "Trabajando en tu foto, esto puede tardar un minuto...",
	},
	msgDownloading: {
		"en": "Fetching your photo...",
		"ru": "Загружаю ваше фото...",
		"es": "Descargando tu foto...",
	},
	msgRepairing: {
		"en": "Repairing creases and damage...",
		"ru": "Убираю заломы и повреждения...",
		"es": "Reparando pliegues y daños...",
	},
	msgRestoring: {
		"en": "Restoring details...",
		"ru": "Восстанавливаю детали...",
		"es": "Restaurando detalles...",
	},
	msgColorizing: {
		"en": "Adding color...",
		"ru": "Добавляю цвет...",
		"es": "Añadiendo color...",
	},
	msgUpgrading: {
		"en": "Upgrading quality...",
		"ru": "Улучшаю качество...",
		"es": "Mejorando la calidad...",
	},
	msgApplyingEffect: {
		"en": "Applying the effect...",
		"ru": "Применяю эффект...",
		"es": "Aplicando el efecto...",
	},
	msgVideoSubmitted: {
		"en": "Video generation started, I will send it as soon as it is ready.",
		"ru": "Генерация видео запущена, отправлю его, как только будет готово.",
		"es": "La generación del video ha comenzado, lo enviaré en cuanto esté listo.",
	},
	msgCompleted: {
		"en": "Done! Generations left: %d",
		"ru": "Готово! Осталось генераций: %d",
		"es": "¡Listo! Generaciones restantes: %d",
	},
	msgFailed: {
		"en": "Something went wrong, your balance was not charged. If this keeps happening, contact %s",
		"ru": "Что-то пошло не так, баланс не списан. Если это повторится, напишите %s",
		"es": "Algo salió mal, no se cobró tu saldo. Si esto sigue pasando, contacta a %s",
	},
	msgNoBalance: {
		"en": "You have no generations left. Use /buy to top up.",
		"ru": "У вас не осталось генераций. Используйте /buy, чтобы пополнить.",
		"es": "No te quedan generaciones. Usa /buy para recargar.",
	},
	msgCreaseChoice: {
		"en": "I could not repair the creases on this photo. The charge was refunded. Continue without crease repair?",
		"ru": "Не удалось убрать заломы на этом фото. Списание возвращено. Продолжить без удаления заломов?",
		"es": "No pude reparar los pliegues de esta foto. Se reembolsó el cobro. ¿Continuar sin reparación de pliegues?",
	},
	msgCreaseContinue: {
		"en": "Continue without repair",
		"ru": "Продолжить без ремонта",
		"es": "Continuar sin reparación",
	},
	msgCreaseCancel: {
		"en": "Cancel",
		"ru": "Отмена",
		"es": "Cancelar",
	},
}

func text(key, locale string) string {
	byLang, ok := messages[key]
	if !ok {
		return ""
	}
	if msg, ok := byLang[Normalize(locale)]; ok {
		return msg
	}
	return byLang["en"]
}

func ProcessingText(locale string) string     { return text(msgProcessing, locale) }
func DownloadingText(locale string) string    { return text(msgDownloading, locale) }
func RepairingText(locale string) string      { return text(msgRepairing, locale) }
func RestoringText(locale string) string      { return text(msgRestoring, locale) }
func ColorizingText(locale string) string     { return text(msgColorizing, locale) }
func UpgradingText(locale string) string      { return text(msgUpgrading, locale) }
func ApplyingEffectText(locale string) string { return text(msgApplyingEffect, locale) }
func VideoSubmittedText(locale string) string { return text(msgVideoSubmitted, locale) }

// CompletedCaption includes the user's remaining balance for display.
func CompletedCaption(locale string, remaining int) string {
	return fmt.Sprintf(text(msgCompleted, locale), remaining)
}

// FailureText names the support contact and promises the refund.
func FailureText(locale, supportContact string) string {
	return fmt.Sprintf(text(msgFailed, locale), supportContact)
}

func InsufficientBalanceText(locale string) string { return text(msgNoBalance, locale) }

func CreaseChoiceText(locale string) string    { return text(msgCreaseChoice, locale) }
func CreaseContinueButton(locale string) string { return text(msgCreaseContinue, locale) }
func CreaseCancelButton(locale string) string   { return text(msgCreaseCancel, locale) }
