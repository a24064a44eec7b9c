package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixPoyIdemResult：购彩幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果（PlaceOutput JSON），用于后续重复请求直接返回。
	PrefixPoyIdemResult = "poy:idem:result:"
	// PrefixPoyIdemLock：购彩幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixPoyIdemLock = "poy:idem:lock:"

	// PrefixDrawMutex：期号级互斥锁。结算与改号冲正都必须先拿到该锁，
	// 防止同一期并发两次结算、或结算与冲正同时开跑。
	PrefixDrawMutex = "draw:mutex:"

	// PrefixDrawResult：开奖结果缓存，供前端汇总页快速查询
	PrefixDrawResult = "draw:result:"
)

// IdemResultKey：构造幂等“结果缓存”的完整 Key。
// 形如：poy:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixPoyIdemResult + k }

// IdemLockKey：构造幂等“进行中锁”的完整 Key。
// 形如：poy:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixPoyIdemLock + k }

// DrawMutexKey：构造期号互斥锁 Key。形如：draw:mutex:{draw_id}
func DrawMutexKey(drawID string) string { return PrefixDrawMutex + drawID }

// DrawResultKey：构造开奖结果缓存 Key。形如：draw:result:{draw_id}
func DrawResultKey(drawID string) string { return PrefixDrawResult + drawID }
