package websocket

import (
	"bytes"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"arbot/internal/models"
)

// ============ ОПТИМИЗАЦИЯ: sync.Pool для JSON буферов ============
// Убирает аллокации при каждом Broadcast (было ~1000+/сек)

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512)) // начальный размер 512 байт
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам.
// Обеспечивает real-time обновления данных на frontend без необходимости polling.
//
// Функции:
// - Регистрация новых WebSocket клиентов
// - Отмена регистрации отключенных клиентов
// - Broadcast сообщений всем активным клиентам
// - Маршрутизация сообщений по типам (pairUpdate, notification, balanceUpdate)
// - Обработка переподключений
// - Очистка отключенных соединений
// - Потокобезопасная работа с клиентами (sync.RWMutex)
//
// Типы сообщений:
// - pairUpdate: обновление состояния пары (цены, PNL, спред)
// - notification: новое уведомление
// - balanceUpdate: обновление баланса биржи
// - statsUpdate: обновление статистики
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.Broadcast(message)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once

	dropped atomic.Int64
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Stop shuts down the Run loop. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и broadcast
//
// ОПТИМИЗАЦИЯ: исправлен race condition при удалении клиентов под RLock
// Теперь: копируем список → отправляем без Lock → удаляем под Write Lock
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Client connected. Total clients: %d", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("Client disconnected. Total clients: %d", len(h.clients))

		case message := <-h.broadcast:
			// ОПТИМИЗАЦИЯ: копируем список клиентов под коротким RLock
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			// Отправляем сообщения БЕЗ блокировки (не блокируем register/unregister)
			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
					// Сообщение отправлено успешно
				default:
					// Клиент не успевает обрабатывать сообщения - помечаем для удаления
					toRemove = append(toRemove, client)
				}
			}

			// Удаляем медленных клиентов под Write Lock
			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				log.Printf("Removed %d slow clients. Total clients: %d", len(toRemove), len(h.clients))
			}
		}
	}
}

// Broadcast отправляет сообщение всем подключенным клиентам
// ОПТИМИЗАЦИЯ: использует sync.Pool для буферов (убирает аллокации)
func (h *Hub) Broadcast(message interface{}) {
	// Получаем буфер из пула
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	// Сериализуем в буфер
	if err := json.NewEncoder(buf).Encode(message); err != nil {
		log.Printf("Error marshaling broadcast message: %v", err)
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копируем данные (буфер вернётся в пул)
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)

	// Возвращаем буфер в пул
	jsonBufferPool.Put(buf)

	select {
	case h.broadcast <- msgCopy:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastRaw sends already-serialized bytes directly to every client,
// bypassing Broadcast's JSON encoding. Dropped under backpressure like
// Broadcast, rather than blocking the caller.
func (h *Hub) BroadcastRaw(data []byte) {
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	select {
	case h.broadcast <- msgCopy:
	default:
		h.dropped.Add(1)
	}
}

// DroppedMessages reports how many broadcasts were discarded because the
// internal queue was full.
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}

// BroadcastPairUpdate отправляет обновление состояния пары
func (h *Hub) BroadcastPairUpdate(pairID int, runtime *models.PairRuntime) {
	h.Broadcast(NewPairUpdateMessage(pairID, runtime))
}

// BroadcastNotification отправляет новое уведомление
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// BroadcastBalanceUpdate отправляет обновление баланса одной биржи
func (h *Hub) BroadcastBalanceUpdate(exchange string, balance float64) {
	h.Broadcast(NewBalanceUpdateMessage(exchange, balance))
}

// BroadcastAllBalances отправляет снимок балансов всех подключенных бирж
// одним сообщением, используя тот же тип "balanceUpdate".
func (h *Hub) BroadcastAllBalances(balances map[string]float64) {
	h.Broadcast(NewAllBalancesUpdateMessage(balances))
}

// BroadcastStatsUpdate отправляет обновление статистики
func (h *Hub) BroadcastStatsUpdate(stats *models.Stats) {
	h.Broadcast(NewStatsUpdateMessage(stats))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
