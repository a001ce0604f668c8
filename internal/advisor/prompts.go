package advisor

const systemPrompt = `Ты — модель, которая анализирует телефонные звонки.
У тебя есть список звонков: время, длительность, успех/неуспех.
Также у тебя есть регион, оператор и часовой пояс абонента.

Задача:
1. Определи лучшее время для звонка.
2. Не учитывай часы, где длительность 0 — значит абонент не отвечал.
3. Учитывай рабочие часы региона (часовой пояс).
4. Учитывай особенности оператора (например: корпоративные номера чаще отвечают днём).
5. Дай итог в виде:
   • Лучшее время звонить
   • Часы, когда НЕ стоит звонить
   • Краткое объяснение`

// userPromptTemplate arguments: region, timezone, carrier, call list,
// unanswered hours, low-engagement hours, successful hours, caller clock zone.
const userPromptTemplate = `Регион: %s
Часовой пояс: %s
Оператор: %s

Список звонков (время, длительность в секундах):
%s

Часы, когда абонент НЕ отвечал (длительность 0):
%s

Часы, когда абоненту было неудобно говорить или отвечал автоответчик (длительность от 1 до %d секунд):
%s

Часы, когда разговор состоялся:
%s

Проанализируй список звонков и определи по часам суток: когда номер чаще отвечает, когда чаще не отвечает,
лучшее время для звонка, время, когда звонить бессмысленно.
Обрати внимание: если длительность звонка слишком короткая, то скорее всего абоненту неудобно говорить в это время.
Если есть данные о часовом поясе и операторе — учитывай их.
Имей в виду, что время звонков в списке указано по часовому поясу %s.
Сделай краткие рекомендации менеджеру по продажам, в какое время лучше звонить.`
