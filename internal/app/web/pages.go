package web

import "github.com/linemk/price-guess/internal/domain/models"

// FormPage данные страниц входа и регистрации
type FormPage struct {
	Title   string
	Message string
	Values  map[string]string
	Errors  map[string]string
}

// FormField одно поле формы
type FormField struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

// Field собирает поле для шаблона; пароли обратно в форму не подставляются
func (p FormPage) Field(name, label, typ string) FormField {
	f := FormField{
		Name:  name,
		Label: label,
		Type:  typ,
		Error: p.Errors[name],
	}
	if typ != "password" {
		f.Value = p.Values[name]
	}
	return f
}

// HomePage данные игровой страницы
type HomePage struct {
	Title        string
	User         models.User
	Score        string
	InitialPrice string
	Period       int
}
