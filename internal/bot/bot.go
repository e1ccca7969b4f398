package bot

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"dexgrid-bot-go/internal/dex"
	"dexgrid-bot-go/internal/manager"
	"dexgrid-bot-go/internal/models"
	"dexgrid-bot-go/internal/persistence"
	"dexgrid-bot-go/internal/reporter"
)

// GridBot 是网格机器人的外层轮询器: 持有管理器、链上协作者和快照仓库,
// 周期性地驱动管理器的生命周期操作, 并把管理器的决策（挂单/撤单）
// 执行到链上。生命周期操作全部在轮询循环这一个 goroutine 里串行执行,
// 管理器因此无需内部加锁。
type GridBot struct {
	cfg     *models.Config
	mcfg    *models.ManagerConfig
	manager *manager.OrderManager
	chain   dex.Dex
	repo    persistence.GridRepository
	logger  *zap.SugaredLogger

	mutex       sync.Mutex
	isRunning   bool
	stopChannel chan struct{}

	// stateMu 串行化对管理器的全部访问: 管理器自身不加锁,
	// 轮询循环持写锁做生命周期操作, 状态循环持读锁渲染报表。
	stateMu sync.RWMutex
}

// NewGridBot 创建轮询器。所有协作者显式注入。
func NewGridBot(cfg *models.Config, mcfg *models.ManagerConfig, om *manager.OrderManager,
	chain dex.Dex, repo persistence.GridRepository, logger *zap.SugaredLogger) *GridBot {
	return &GridBot{
		cfg:     cfg,
		mcfg:    mcfg,
		manager: om,
		chain:   chain,
		repo:    repo,
		logger:  logger,
	}
}

// Start 初始化管理器（存在快照则并入）并启动轮询与状态循环。
func (b *GridBot) Start() error {
	b.mutex.Lock()
	if b.isRunning {
		b.mutex.Unlock()
		return fmt.Errorf("机器人已在运行")
	}
	b.isRunning = true
	b.stopChannel = make(chan struct{})
	b.mutex.Unlock()

	b.stateMu.Lock()
	// 初始化失败是致命的（市价出界等安全红线）, 不做内部重试。
	if err := b.manager.Initialize(); err != nil {
		b.stateMu.Unlock()
		b.setStopped()
		return fmt.Errorf("网格初始化失败: %w", err)
	}

	persisted, err := b.repo.LoadGrid(b.mcfg.Symbol())
	if err != nil {
		b.logger.Warnf("读取网格快照失败, 按全新网格启动: %v", err)
	}
	if len(persisted) > 0 {
		if err := b.manager.LoadGrid(persisted); err != nil {
			b.logger.Warnf("快照无法并入 (%v), 按全新网格启动", err)
			b.manager.InitializeGrid()
		}
	} else {
		b.logger.Info("没有历史快照, 按全新网格启动")
		b.manager.InitializeGrid()
	}

	b.executeDecisions()
	b.saveSnapshot()
	b.stateMu.Unlock()

	go b.pollLoop()
	go b.statusLoop()

	b.logger.Info("网格机器人已启动")
	return nil
}

// Stop 停止轮询并保存最终快照。
func (b *GridBot) Stop() {
	b.mutex.Lock()
	if !b.isRunning {
		b.mutex.Unlock()
		return
	}
	b.isRunning = false
	close(b.stopChannel)
	b.mutex.Unlock()

	// 等待在途的轮询周期结束后再保存最终快照。
	b.stateMu.Lock()
	b.saveSnapshot()
	b.stateMu.Unlock()
	b.logger.Info("网格机器人已停止, 快照已保存")
}

func (b *GridBot) setStopped() {
	b.mutex.Lock()
	b.isRunning = false
	b.mutex.Unlock()
}

// pollLoop 是主循环: 每个周期强制一次重算, 让管理器对照链上挂单
// 检出成交并完成补单决策, 然后把决策执行到链上。
func (b *GridBot) pollLoop() {
	ticker := time.NewTicker(time.Duration(b.cfg.PollIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChannel:
			return
		case <-ticker.C:
			b.pollOnce()
		}
	}
}

func (b *GridBot) pollOnce() {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.manager.ForceRecalculation()
	if _, err := b.manager.FetchOrderUpdates(); err != nil {
		// 外部调用失败只影响本轮, 账本未被部分修改, 下轮重试。
		b.logger.Warnf("本轮订单更新失败: %v", err)
		return
	}
	b.executeDecisions()
	b.saveSnapshot()
}

// executeDecisions 把管理器的决策执行到链上: 先撤掉被轮换掉的远端
// 订单, 再挂出新激活的订单。挂单失败降级处理——槽位保持待挂状态,
// 下一轮重试。
func (b *GridBot) executeDecisions() {
	for _, externalID := range b.manager.DrainCancelQueue() {
		if err := b.chain.CancelOrder(b.mcfg.Account, externalID); err != nil {
			b.logger.Warnf("撤单 %s 失败: %v", externalID, err)
		}
	}

	for _, o := range b.manager.PendingPlacements() {
		tag := dex.NewOrderTag()
		externalID, err := b.chain.PlaceOrder(b.mcfg.Account, o.Type,
			b.mcfg.BaseSymbol, b.mcfg.QuoteSymbol, o.Size, o.Price, tag)
		if err != nil {
			b.logger.Warnf("挂单 %s (%s %.8f @ %.8f) 失败, 下轮重试: %v",
				o.ID, o.Type, o.Size, o.Price, err)
			continue
		}
		if err := b.manager.ConfirmPlaced(o.ID, externalID); err != nil {
			b.logger.Errorf("确认挂单 %s 失败: %v", o.ID, err)
			continue
		}
		b.logger.Infof("挂单成功 %s: %s %.8f @ %.8f (链上句柄 %s, 标签 %s)",
			o.ID, o.Type, o.Size, o.Price, externalID, tag)
	}
}

// saveSnapshot 把订单集合写入快照仓库。失败只告警: 快照是恢复手段,
// 不是账本的权威来源。
func (b *GridBot) saveSnapshot() {
	if err := b.repo.SaveGrid(b.mcfg.Symbol(), b.manager.Orders()); err != nil {
		b.logger.Warnf("保存网格快照失败: %v", err)
	}
}

// statusLoop 周期性打印网格与账本状态。
func (b *GridBot) statusLoop() {
	ticker := time.NewTicker(time.Duration(b.cfg.StatusIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChannel:
			return
		case <-ticker.C:
			b.reportStatus(os.Stdout)
		}
	}
}

// reportStatus 在读锁下渲染网格与账本报表, 与轮询循环的写操作互斥。
func (b *GridBot) reportStatus(w io.Writer) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	reporter.RenderGridTable(w, b.manager.Orders(), b.manager.MarketPrice())
	reporter.RenderLedgerTable(w, b.manager.Ledger())
}
