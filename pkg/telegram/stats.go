package telegram

import (
	"context"
	"errors"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// StatsGraphs загружает графики статистики канала. Если статистика хранится
// в другом дата-центре, запрос выполняется через соединение из пула.
func (t *Transport) StatsGraphs(ctx context.Context, channel models.Channel, graphs ...string) (map[string][]byte, error) {
	input, err := t.chats.input(ctx, channel)
	if err != nil {
		return nil, err
	}
	req := &tg.StatsGetBroadcastStatsRequest{Channel: input}
	api := t.api
	stats, err := api.StatsGetBroadcastStats(ctx, req)
	if rpcErr, ok := tgerr.AsType(err, "STATS_MIGRATE"); ok && t.leases != nil {
		l, lerr := t.leases.Borrow(ctx, rpcErr.Argument)
		if lerr != nil {
			return nil, &transport.Fault{Op: "stats.getBroadcastStats", Err: lerr}
		}
		defer l.Return()
		log.Debugf("[STATS] статистика канала %s в DC %d", channel, l.DC())
		api = tg.NewClient(l)
		stats, err = api.StatsGetBroadcastStats(ctx, req)
	}
	if err != nil {
		return nil, classify("stats.getBroadcastStats", err)
	}

	res := make(map[string][]byte, len(graphs))
	for _, name := range graphs {
		var g tg.StatsGraphClass
		switch name {
		case transport.GraphLanguages:
			g = stats.LanguagesGraph
		case transport.GraphViewsBySource:
			g = stats.ViewsBySourceGraph
		default:
			continue
		}
		data, err := loadGraph(ctx, api, g)
		if err != nil {
			var graphErr *graphError
			if errors.As(err, &graphErr) {
				log.Debugf("[STATS] график %s канала %s недоступен: %v", name, channel, err)
				continue
			}
			return nil, err
		}
		res[name] = data
	}
	return res, nil
}

// graphError сообщает, что Telegram не смог построить график (например, мало данных).
type graphError struct{ msg string }

func (e *graphError) Error() string { return e.msg }

// loadGraph возвращает JSON графика, при необходимости догружая асинхронный.
func loadGraph(ctx context.Context, api *tg.Client, g tg.StatsGraphClass) ([]byte, error) {
	for i := 0; i < 2; i++ {
		switch v := g.(type) {
		case *tg.StatsGraph:
			return []byte(v.JSON.Data), nil
		case *tg.StatsGraphError:
			return nil, &graphError{msg: v.Error}
		case *tg.StatsGraphAsync:
			loaded, err := api.StatsLoadAsyncGraph(ctx, &tg.StatsLoadAsyncGraphRequest{Token: v.Token})
			if err != nil {
				return nil, classify("stats.loadAsyncGraph", err)
			}
			g = loaded
		default:
			return nil, &graphError{msg: "график отсутствует"}
		}
	}
	return nil, &graphError{msg: "график не загружен"}
}
