// Package action реализует текстовый протокол команд между сессиями:
// запрос "ACTION {json}" и ответ "/<action> {json}".
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/naztar0/TgPostsGuardian/models"
)

// Prefix задаёт начало сообщения с командой.
const Prefix = "ACTION"

// Команды протокола.
const (
	UpdateUsername = "update_username"
	MakePost       = "make_post"
	PublishPost    = "publish_post"
)

// ErrUnknownAction означает, что команда не поддерживается.
var ErrUnknownAction = errors.New("неизвестная команда")

// ErrInvalidParams означает, что параметры команды не прошли проверку.
var ErrInvalidParams = errors.New("некорректные параметры команды")

var pattern = regexp.MustCompile(`(?s)^ACTION\s+(\{.*\})\s*$`)

var validate = validator.New()

// Request содержит разобранную команду.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"-"`
}

// UpdateUsernameData содержит параметры update_username. ChannelID в формате -100<id>.
type UpdateUsernameData struct {
	ChannelID    int64                        `json:"channel_id" validate:"required"`
	Reason       *models.UsernameChangeReason `json:"reason,omitempty"`
	Comment      string                       `json:"comment,omitempty"`
	LimitationID *int64                       `json:"limitation_id,omitempty"`
}

// UpdateUsernameResult содержит ответ на update_username.
type UpdateUsernameResult struct {
	ChannelID int64  `json:"channel_id"`
	Username  string `json:"username"`
}

// MakePostData содержит параметры make_post: копирование сообщений архива в новый пост.
type MakePostData struct {
	AlbumIDs  []int `json:"album_ids,omitempty" validate:"omitempty,max=10,dive,gt=0"`
	TextID    int   `json:"text_id" validate:"gt=0"`
	BotUserID int64 `json:"bot_user_id"`
}

// MakePostResult содержит ответ на make_post.
type MakePostResult struct {
	MessageIDs []int `json:"message_ids"`
	BotUserID  int64 `json:"bot_user_id"`
}

// PublishPostData содержит параметры publish_post: публикация поста архива в канал.
type PublishPostData struct {
	MessageIDs []int `json:"message_ids" validate:"required,min=1,max=10,dive,gt=0"`
	ChannelID  int64 `json:"channel_id" validate:"required"`
	AdID       int64 `json:"ad_id"`
}

// PublishPostResult содержит ответ на publish_post.
type PublishPostResult struct {
	MessageIDs []int `json:"message_ids"`
	AdID       int64 `json:"ad_id"`
}

// IsAction сообщает, похож ли текст на команду.
func IsAction(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), Prefix)
}

// Parse разбирает текст "ACTION {json}".
func Parse(text string) (Request, error) {
	m := pattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Request{}, fmt.Errorf("сообщение не является командой: %q", text)
	}
	return Decode([]byte(m[1]))
}

// Decode разбирает JSON команды.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("ошибка разбора команды: %w", err)
	}
	if req.Action == "" {
		return Request{}, errors.New("в команде не указано действие")
	}
	req.Data = append(json.RawMessage(nil), data...)
	return req, nil
}

// Bind разбирает параметры команды в v и проверяет их по тегам validate.
func (r Request) Bind(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidParams, r.Action, err)
	}
	if err := validate.Struct(v); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = fmt.Sprintf("%s (%s)", f.Field(), f.Tag())
		}
		return fmt.Errorf("%w %s: %s", ErrInvalidParams, r.Action, strings.Join(names, ", "))
	}
	return nil
}

// Encode формирует текст команды для отправки.
func Encode(action string, data any) (string, error) {
	fields := map[string]any{}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	fields["action"] = action
	body, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return Prefix + " " + string(body), nil
}

// FormatResponse формирует ответ "/<action> {json}".
func FormatResponse(action string, result any) (string, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return "/" + action + " " + string(body), nil
}
