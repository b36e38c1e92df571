package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"studiorent/internal/models"
	"studiorent/internal/storage"
)

const featureCartKey = "cart:feature"

type cartFeature struct {
	catalog map[string]models.Equipment
	kv      *storage.MemoryKV
	store   *CartStore
	outcome Outcome
	quote   Quote
	tiered  decimal.Decimal
}

func (f *cartFeature) reset() {
	f.catalog = map[string]models.Equipment{}
	f.kv = storage.NewMemoryKV()
	f.store = nil
	f.outcome = ""
	f.quote = Quote{}
	f.tiered = decimal.Zero
}

func (f *cartFeature) open() {
	f.store = NewCartStore(context.Background(), f.kv, featureCartKey, time.Hour, zap.NewNop())
}

func (f *cartFeature) catalogItem(id string, price int, stock *int) {
	f.catalog[id] = models.Equipment{
		ID:            id,
		Name:          id,
		PricePerDay:   decimal.NewFromInt(int64(price)),
		StockQuantity: stock,
		Status:        models.EquipmentAvailable,
	}
}

func (f *cartFeature) catalogContainsWithStock(id string, price, stock int) error {
	f.catalogItem(id, price, models.IntPtr(stock))
	return nil
}

func (f *cartFeature) catalogContainsUnlimited(id string, price int) error {
	f.catalogItem(id, price, nil)
	return nil
}

func (f *cartFeature) anEmptyCart() error {
	f.open()
	return nil
}

func (f *cartFeature) iAdd(id string) error {
	e, ok := f.catalog[id]
	if !ok {
		return fmt.Errorf("%q is not in the catalog", id)
	}
	f.outcome = f.store.AddItem(e)
	return nil
}

func (f *cartFeature) iSetQuantity(id string, n int) error {
	f.outcome = f.store.UpdateQuantity(id, n)
	return nil
}

func (f *cartFeature) cartHolds(n int, id string) error {
	if got := f.store.Quantity(id); got != n {
		return fmt.Errorf("expected %d of %q, got %d", n, id, got)
	}
	return nil
}

func (f *cartFeature) cartHasRows(n int) error {
	if got := len(f.store.Items()); got != n {
		return fmt.Errorf("expected %d rows, got %d", n, got)
	}
	return nil
}

func (f *cartFeature) outcomeIs(want string) error {
	if string(f.outcome) != want {
		return fmt.Errorf("expected outcome %q, got %q", want, f.outcome)
	}
	return nil
}

func (f *cartFeature) iPriceTheCart(days int) error {
	f.quote = BuildQuote(f.store.Items(), days)
	return nil
}

func (f *cartFeature) subtotalIs(want int) error {
	if !f.quote.Subtotal.Equal(decimal.NewFromInt(int64(want))) {
		return fmt.Errorf("expected subtotal %d, got %s", want, f.quote.Subtotal)
	}
	return nil
}

func (f *cartFeature) cartIsReopened() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.store.Close(ctx); err != nil {
		return err
	}
	f.open()
	return nil
}

func (f *cartFeature) iPriceTiered(days, day, week int) error {
	w := decimal.NewFromInt(int64(week))
	f.tiered = TieredPrice(decimal.NewFromInt(int64(day)), &w, days)
	return nil
}

func (f *cartFeature) tieredPriceIs(want int) error {
	if !f.tiered.Equal(decimal.NewFromInt(int64(want))) {
		return fmt.Errorf("expected tiered price %d, got %s", want, f.tiered)
	}
	return nil
}

func initializeCartScenario(ctx *godog.ScenarioContext) {
	f := &cartFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if f.store != nil {
			_ = f.store.Close(ctx)
		}
		return ctx, nil
	})

	ctx.Step(`^the catalog contains "([^"]*)" at (\d+) per day with stock (\d+)$`, f.catalogContainsWithStock)
	ctx.Step(`^the catalog contains "([^"]*)" at (\d+) per day with unlimited stock$`, f.catalogContainsUnlimited)
	ctx.Step(`^an empty cart$`, f.anEmptyCart)

	ctx.Step(`^I add "([^"]*)" to the cart$`, f.iAdd)
	ctx.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, f.iSetQuantity)
	ctx.Step(`^I price the cart for (\d+) days$`, f.iPriceTheCart)
	ctx.Step(`^the cart is reopened from storage$`, f.cartIsReopened)
	ctx.Step(`^I price (\d+) days at (\d+) per day and (\d+) per week$`, f.iPriceTiered)

	ctx.Step(`^the cart holds (\d+) of "([^"]*)"$`, f.cartHolds)
	ctx.Step(`^the cart has (\d+) rows$`, f.cartHasRows)
	ctx.Step(`^the outcome is "([^"]*)"$`, f.outcomeIs)
	ctx.Step(`^the subtotal is (\d+)$`, f.subtotalIs)
	ctx.Step(`^the tiered price is (\d+)$`, f.tieredPriceIs)
}

func TestCartFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeCartScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features/cart.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
