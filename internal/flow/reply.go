package flow

// Button кнопка клавиатуры с уже закодированным действием
type Button struct {
	Text string
	Data string
}

// Reply инструкция для транспорта: текст и сетка кнопок
type Reply struct {
	Text string
	HTML bool
	// Header строка кнопок над списком
	Header []Button
	// Choices раскладываются по PerRow в ряд
	Choices []Button
	PerRow  int
	// Footer замыкающая строка второстепенных действий
	Footer []Button
	// Fresh отправить новое сообщение вместо правки активного
	Fresh bool
}

// Result ответ машины на одно действие
type Result struct {
	Replies []Reply
	// Notice короткий ответ на нажатие кнопки
	Notice string
	// Alert показать Notice модальным окном
	Alert bool
}

// Rows раскладывает Header, Choices и Footer в ряды клавиатуры
func (r Reply) Rows() [][]Button {
	var rows [][]Button
	if len(r.Header) > 0 {
		rows = append(rows, r.Header)
	}
	perRow := r.PerRow
	if perRow <= 0 {
		perRow = 1
	}
	for i := 0; i < len(r.Choices); i += perRow {
		end := min(i+perRow, len(r.Choices))
		rows = append(rows, r.Choices[i:end])
	}
	if len(r.Footer) > 0 {
		rows = append(rows, r.Footer)
	}
	return rows
}

func single(r Reply) Result {
	return Result{Replies: []Reply{r}}
}

// btn собирает кнопку; Data пустая, если действие не влезает в callback_data
func btn(text string, a Action) Button {
	return Button{Text: text, Data: Encode(a)}
}

// buttons пропускает кнопки, которые нельзя закодировать
func buttons(bs ...Button) []Button {
	out := make([]Button, 0, len(bs))
	for _, b := range bs {
		if b.Data != "" {
			out = append(out, b)
		}
	}
	return out
}
