package models

// Credentials - пара токенов, выдаваемая при входе и при обновлении.
// AccessToken короткоживущий, RefreshToken нужен для выпуска новой пары.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
