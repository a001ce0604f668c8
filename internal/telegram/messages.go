package telegram

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MikeSquared-Agency/callhour/internal/calllog"
	"github.com/MikeSquared-Agency/callhour/internal/locale"
	"github.com/MikeSquared-Agency/callhour/internal/processor"
	"github.com/MikeSquared-Agency/callhour/internal/yandexgpt"
)

const (
	greetingText = "Привет! Загрузи Excel или CSV c колонками:\n" +
		"номер клиента, время звонка, длительность\n" +
		"(подойдут и phone, call_time, duration).\n\n" +
		"После — напиши номер телефона, и я проанализирую звонки.\n" +
		"/reset — забыть загруженную таблицу."
	progressText     = "🔍 Анализирую звонки..."
	noDataText       = "❌ Нет данных по этому номеру."
	resetText        = "🗑 Таблица звонков удалена."
	nothingResetText = "Таблица звонков ещё не загружена."
	llmDisabledText  = "⚠️ Модель не настроена, рекомендация недоступна."
	resultHeader     = "📊 Результат анализа:\n"
	internalError    = "Что-то пошло не так, попробуйте ещё раз."
)

var fieldLabels = map[calllog.Field]string{
	calllog.FieldPhone:    "номер клиента",
	calllog.FieldCallTime: "время",
	calllog.FieldDuration: "длительность",
}

func previewText(sum *processor.UploadSummary) string {
	var sb strings.Builder
	sb.WriteString("📌 Распознано (нужные колонки):\n")
	if len(sum.Preview) == 0 {
		sb.WriteString("нет строк с корректным временем и длительностью")
		return sb.String()
	}
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "phone\tcall_time\tduration")
	for _, r := range sum.Preview {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Phone, r.CallTime, r.Duration)
	}
	tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func uploadedText(sum *processor.UploadSummary) string {
	text := fmt.Sprintf("📁 Файл загружен! Обнаружены колонки:\n• Номер: %s\n• Время: %s\n• Длительность: %s\nСтрок: %d",
		sum.Columns.Phone, sum.Columns.CallTime, sum.Columns.Duration, sum.Rows)
	if sum.Dropped > 0 {
		text += fmt.Sprintf(", пропущено: %d", sum.Dropped)
	}
	return text
}

func localeCard(phone string, info locale.Info) string {
	return fmt.Sprintf("📞 Номер: %s\n🏢 Оператор: %s\n🏙 Регион: %s\n🌍 Часовой пояс: %s",
		phone, info.Carrier, info.Region, info.Timezone)
}

func uploadErrorText(err error) string {
	var missing *calllog.MissingColumnError
	switch {
	case errors.As(err, &missing):
		label, ok := fieldLabels[missing.Field]
		if !ok {
			label = string(missing.Field)
		}
		return "Ошибка обработки файла:\nНе найдена колонка: " + label
	case errors.Is(err, processor.ErrFileTooLarge):
		return "Ошибка обработки файла:\nфайл слишком большой"
	case errors.Is(err, calllog.ErrUnsupportedFormat):
		return "Ошибка обработки файла:\nформат не поддерживается, загрузите .xlsx или .csv"
	case errors.Is(err, calllog.ErrEmptyFile):
		return "Ошибка обработки файла:\nфайл пустой"
	default:
		return "Ошибка обработки файла:\n" + err.Error()
	}
}

func analysisErrorText(err error) string {
	if errors.Is(err, processor.ErrLLMDisabled) {
		return llmDisabledText
	}
	return yandexgpt.DiagnosticPrefix + err.Error()
}
