package memorycataloguefx

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	catalogue "github.com/3vilTid/Catalogue-Web-App"
	"github.com/3vilTid/Catalogue-Web-App/internal/kv/memkv"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
)

func TestModule(t *testing.T) {
	var (
		client *catalogue.Client
		store  *memkv.Store
	)

	invoker := rpc.InvokerFunc(func(context.Context, string, []any) (json.RawMessage, error) {
		return json.RawMessage(`{"items":[{"name":"a"}]}`), nil
	})

	app := fxtest.New(t,
		fx.Supply(zap.NewNop()),
		fx.Provide(func() rpc.Invoker { return invoker }),
		Module,
		fx.Populate(&client, &store),
	)
	app.RequireStart()

	_, source, err := client.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if source != catalogue.SourceNetwork {
		t.Errorf("Load() source = %v, want network", source)
	}

	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) == 0 {
		t.Error("Keys() is empty, want the saved snapshot")
	}

	app.RequireStop()
}
