package mm

import (
	"math"

	"alphatrade/internal/domain"
	"alphatrade/internal/logger"
	"alphatrade/internal/quote"
)

// InventoryStatus 描述当前库存相对限额的位置。
// 三个布尔阈值彼此独立，每次都从实时库存重新求值，不缓存。
type InventoryStatus struct {
	Symbol           string  `json:"symbol"`
	CurrentInventory float64 `json:"current_inventory"`
	MaxInventory     float64 `json:"max_inventory"`
	InventoryRatio   float64 `json:"inventory_ratio"`
	IsAtLimit        bool    `json:"is_at_limit"`
	IsNearLimit      bool    `json:"is_near_limit"`
	ShouldReduce     bool    `json:"should_reduce"`
}

// CheckInventoryLimits 按 warning_threshold（缺省 0.8）评估库存状态。
func CheckInventoryLimits(current, maxInventory, warningThreshold float64) InventoryStatus {
	if warningThreshold <= 0 {
		warningThreshold = 0.8
	}
	ratio := 0.0
	if maxInventory > 0 {
		ratio = math.Abs(current) / maxInventory
	}
	return InventoryStatus{
		CurrentInventory: current,
		MaxInventory:     maxInventory,
		InventoryRatio:   ratio,
		IsAtLimit:        ratio >= 1.0,
		IsNearLimit:      ratio >= warningThreshold,
		ShouldReduce:     ratio > 0.9,
	}
}

// ShouldAdjustQuotes 判断是否需要撤换挂单。
// 任一侧没有挂单（价格<=0）时必定重挂；否则比较相对变化，
// 分母用当前挂单价而不是新价，这个不对称是刻意保留的。
func ShouldAdjustQuotes(currentBid, currentAsk, newBid, newAsk, minSpreadChange float64) bool {
	if minSpreadChange <= 0 {
		minSpreadChange = 0.001
	}
	if currentBid <= 0 || currentAsk <= 0 {
		return true
	}
	bidChange := math.Abs(newBid-currentBid) / currentBid
	askChange := math.Abs(newAsk-currentAsk) / currentAsk
	return bidChange > minSpreadChange || askChange > minSpreadChange
}

// QuoteSet 是一次报价计算的结果（不落地）。
type QuoteSet struct {
	Symbol      string  `json:"symbol"`
	BidPrice    float64 `json:"bid_price"`
	AskPrice    float64 `json:"ask_price"`
	BidQuantity float64 `json:"bid_quantity"`
	AskQuantity float64 `json:"ask_quantity"`
	Inventory   float64 `json:"inventory"`
	Spread      float64 `json:"spread"`
}

// PositionReader 提供报价所需的实时持仓读取。
type PositionReader interface {
	Get(symbol string) (*domain.Position, bool)
}

// OrderReader 提供按 symbol 查询挂单的能力。
type OrderReader interface {
	BySymbol(symbol string) []*domain.Order
}

// Policy 把报价模型和持仓/订单视图组合成做市决策层。
// 只读外部状态，不做任何撮合或下单。
type Policy struct {
	model     *quote.Model
	positions PositionReader
	orders    OrderReader
}

func NewPolicy(model *quote.Model, positions PositionReader, orders OrderReader) *Policy {
	return &Policy{model: model, positions: positions, orders: orders}
}

// Quotes 读取实时库存并计算双边报价。
func (p *Policy) Quotes(symbol string, midPrice, baseQuantity, maxInventory, timeToMaturity float64) (QuoteSet, error) {
	inventory := 0.0
	if p.positions != nil {
		if pos, ok := p.positions.Get(symbol); ok {
			inventory = pos.Size
		}
	}

	bid, ask, err := p.model.OptimalSpread(midPrice, inventory, timeToMaturity)
	if err != nil {
		return QuoteSet{}, err
	}
	bidQty, askQty, err := p.model.OptimalQuantities(midPrice, inventory, maxInventory, baseQuantity, timeToMaturity)
	if err != nil {
		return QuoteSet{}, err
	}

	qs := QuoteSet{
		Symbol:      symbol,
		BidPrice:    bid,
		AskPrice:    ask,
		BidQuantity: bidQty,
		AskQuantity: askQty,
		Inventory:   inventory,
		Spread:      ask - bid,
	}
	logger.Debugf("[mm] %s 报价 mid=%.4f inv=%.4f bid=%.4f/%.4f ask=%.4f/%.4f",
		symbol, midPrice, inventory, qs.BidPrice, qs.BidQuantity, qs.AskPrice, qs.AskQuantity)
	return qs, nil
}

// InventoryStatus 按实时持仓评估库存限额。
func (p *Policy) InventoryStatus(symbol string, maxInventory, warningThreshold float64) InventoryStatus {
	inventory := 0.0
	if p.positions != nil {
		if pos, ok := p.positions.Get(symbol); ok {
			inventory = pos.Size
		}
	}
	status := CheckInventoryLimits(inventory, maxInventory, warningThreshold)
	status.Symbol = symbol
	if status.IsAtLimit {
		logger.Warnf("[mm] %s 库存到达限额: %.4f/%.4f", symbol, inventory, maxInventory)
	} else if status.IsNearLimit {
		logger.Warnf("[mm] %s 库存接近限额: %.4f/%.4f", symbol, inventory, maxInventory)
	}
	return status
}

// MakerOrders 返回当前双边 post-only 挂单（任一侧可能为 nil）。
func (p *Policy) MakerOrders(symbol string) (bidOrder, askOrder *domain.Order) {
	if p.orders == nil {
		return nil, nil
	}
	for _, o := range p.orders.BySymbol(symbol) {
		if !o.IsOpen() || !o.PostOnly {
			continue
		}
		switch o.Side {
		case domain.SideBuy:
			if bidOrder == nil {
				bidOrder = o
			}
		case domain.SideSell:
			if askOrder == nil {
				askOrder = o
			}
		}
	}
	return bidOrder, askOrder
}
