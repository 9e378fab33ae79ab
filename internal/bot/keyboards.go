package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/scamwatch/reportbot/internal/models"
)

// callback payload prefixes for the admin review workflow
const (
	cbStartReport    = "start_report"
	cbConfirmReport  = "confirm_report"
	cbCancelReport   = "cancel_report"
	cbReviewPrefix   = "rv:"
	cbStatusPrefix   = "st:"
	cbAnnotatePrefix = "an:"
)

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Report a Fraud", cbStartReport),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm & Send", cbConfirmReport),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cbCancelReport),
		),
	)
}

// reportListKeyboard renders one button per open report.
func reportListKeyboard(reports []models.Report) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reports))
	for _, r := range reports {
		label := fmt.Sprintf("#%s %s [%s]", r.ID, r.AccusedHandle, r.Status)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbReviewPrefix+r.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// reviewKeyboard offers the legal actions on one report.
func reviewKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Mark under review", fmt.Sprintf("%s%s:%s", cbStatusPrefix, id, models.StatusUnderReview)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Mark resolved", fmt.Sprintf("%s%s:%s", cbStatusPrefix, id, models.StatusResolved)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Annotate", cbAnnotatePrefix+id),
		),
	)
}
