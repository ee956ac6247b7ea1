package httpgin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/kirinyoku/revuetix/internal/auth"
	"github.com/kirinyoku/revuetix/internal/domain"
	"github.com/kirinyoku/revuetix/internal/mailer"
	"github.com/kirinyoku/revuetix/internal/pricing"
	redisrepo "github.com/kirinyoku/revuetix/internal/repository/redis"
	"github.com/kirinyoku/revuetix/internal/service"
	"github.com/kirinyoku/revuetix/internal/service/admin"
	"github.com/kirinyoku/revuetix/internal/service/orders"
	"github.com/kirinyoku/revuetix/internal/service/reports"
	"github.com/kirinyoku/revuetix/internal/service/seats"
	"github.com/kirinyoku/revuetix/internal/service/tickets"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	idemLockTTL   = 60 * time.Second
	sseKeepAlive  = 25 * time.Second
	qrCacheMaxAge = "public, max-age=3600"
)

type Options struct {
	Tokens        *auth.Manager
	InternalToken string
	AllowOrigins  []string
	SecureCookies bool
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidators()

	r := gin.New()

	r.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		MetricsMiddleware(),
		CORS(opts.AllowOrigins),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", SessionMiddleware(opts.SecureCookies))
	requireAdmin := AdminAuth(opts.Tokens, opts.InternalToken)

	api.GET("/hello", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello, World!"})
	})

	// orders
	api.POST("/orders", handleCreateOrder(svcs, idem))
	api.GET("/orders", requireAdmin, handleListOrders(svcs))
	api.GET("/orders/stats", handleStats(svcs))
	api.GET("/orders/duplicates", requireAdmin, handleDuplicates(svcs))
	api.GET("/orders/duplicates/seat/:date/:rowLabel/:number", requireAdmin, handleSeatDuplicates(svcs))
	api.GET("/orders/order-status/:id", handleOrderStatus(svcs))
	api.GET("/orders/:id", handleGetOrder(svcs))
	api.PUT("/orders/:id", requireAdmin, handleUpdateOrder(svcs))
	api.DELETE("/orders/:id", requireAdmin, handleDeleteOrder(svcs))
	api.POST("/orders/:id/send-email", requireAdmin, handleSendEmail(svcs))

	// seats
	api.GET("/performances", handleListPerformances(svcs))
	api.GET("/seats/:date", handleSeatMap(svcs))
	api.GET("/seats/:date/events", handleSeatEvents(svcs))
	api.POST("/seats/:date/locks", handleLockSeats(svcs))
	api.DELETE("/seats/:date/locks", handleReleaseSeats(svcs))

	// tickets
	api.GET("/qrcode/order/:orderId/:signature", handleOrderQR(svcs))
	api.GET("/qrcode", requireAdmin, handleSeatQR(svcs))
	api.GET("/qrcode/image", requireAdmin, handleSeatQRImage(svcs))
	api.POST("/qrcode/scan", handleScan(svcs))

	// admin
	api.POST("/admin/login", handleLogin(svcs, opts.SecureCookies))
	api.POST("/admin/performances", requireAdmin, handleCreatePerformance(svcs))

	return r
}

// --- Orders ---

// @Summary  Create order and checkout session (idempotent)
// @Param    req body  CreateOrderRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} orders.CreateResult
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} SeatsUnavailableResponse "seats no longer available / idem in progress"
// @Failure  503 {object} ErrorResponse "payment provider unavailable"
// @Router   /api/v1/orders [post]
func handleCreateOrder(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx := c.Request.Context()
		session := sessionID(c)

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemOrder(session + ":" + idemKey)

			if replayIdempotent(c, idem, idemStorageKey, idemKey) {
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayIdempotent(c, idem, idemStorageKey, idemKey) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		res, err := svcs.Orders.Create(ctx, orders.CreateInput{
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Email:         req.Email,
			Phone:         req.Phone,
			IsStudent:     *req.IsStudent,
			StudentCount:  req.StudentCount,
			SelectedDate:  req.SelectedDate,
			SelectedSeats: req.seats(),
			ClientTotal:   req.TotalPrice,
		}, session)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			if b, err := json.Marshal(res); err == nil {
				_ = idem.SaveResult(ctx, idemStorageKey, string(b))
			}
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, res)
	}
}

func replayIdempotent(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
	return true
}

// @Summary  List orders (admin)
// @Param    email query string false "filter by customer email"
// @Success  200 {object} OrdersResponse
// @Router   /api/v1/orders [get]
func handleListOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			list []domain.Order
			err  error
		)
		if email := strings.TrimSpace(c.Query("email")); email != "" {
			list, err = svcs.Orders.GetByEmail(c.Request.Context(), email)
		} else {
			list, err = svcs.Orders.List(c.Request.Context())
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Order{}
		}
		c.JSON(http.StatusOK, OrdersResponse{Orders: list})
	}
}

// @Summary  Sales statistics
// @Success  200 {object} domain.OrderStats
// @Router   /api/v1/orders/stats [get]
func handleStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svcs.Reports.Stats(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// @Summary  Duplicate sales report (admin)
// @Param    date          query string false "YYYY-MM-DD"
// @Param    includeUnpaid query bool   false "count unpaid orders"
// @Success  200 {object} domain.DuplicateReport
// @Router   /api/v1/orders/duplicates [get]
func handleDuplicates(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := svcs.Reports.Duplicates(c.Request.Context(), domain.DuplicateFilter{
			Date:          c.Query("date"),
			IncludeUnpaid: c.Query("includeUnpaid") == "true",
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

// @Summary  Orders holding one seat (admin)
// @Param    date     path string true "YYYY-MM-DD"
// @Param    rowLabel path string true "row"
// @Param    number   path int    true "seat number"
// @Param    includeUnpaid query bool false "count unpaid orders"
// @Success  200 {object} reports.SeatCheck
// @Router   /api/v1/orders/duplicates/seat/{date}/{rowLabel}/{number} [get]
func handleSeatDuplicates(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		number, err := strconv.Atoi(c.Param("number"))
		if err != nil {
			badRequest(c, "Seat number must be a valid integer")
			return
		}

		res, err := svcs.Reports.CheckSeat(
			c.Request.Context(),
			c.Param("date"),
			domain.SeatRef{RowLabel: c.Param("rowLabel"), Number: number},
			c.Query("includeUnpaid") == "true",
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Check and settle the payment of an order
// @Param    id path string true "Order ID (uuid)"
// @Success  200 {object} PaymentStatusResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/orders/order-status/{id} [get]
func handleOrderStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseOrderID(c.Param("id"))
		if !ok {
			notFound(c, "Order not found")
			return
		}

		res, err := svcs.Orders.CheckPaymentStatus(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, PaymentStatusResponse{PaymentStatus: res.PaymentStatus})
	}
}

// @Summary  Get order
// @Param    id path string true "Order ID (uuid)"
// @Success  200 {object} OrderResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseOrderID(c.Param("id"))
		if !ok {
			notFound(c, "Order not found")
			return
		}

		o, err := svcs.Orders.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, OrderResponse{Order: o})
	}
}

// @Summary  Update order (admin)
// @Param    id  path string true "Order ID (uuid)"
// @Param    req body UpdateOrderRequest true "payload"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/orders/{id} [put]
func handleUpdateOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseOrderID(c.Param("id"))
		if !ok {
			notFound(c, "Order not found")
			return
		}

		var req UpdateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if _, err := svcs.Orders.Update(c.Request.Context(), id, req.patch()); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Delete order (admin)
// @Param    id path string true "Order ID (uuid)"
// @Success  204
// @Router   /api/v1/orders/{id} [delete]
func handleDeleteOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseOrderID(c.Param("id"))
		if !ok {
			notFound(c, "Order not found")
			return
		}

		if err := svcs.Orders.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Resend the confirmation email (admin)
// @Param    id path string true "Order ID (uuid)"
// @Success  204
// @Router   /api/v1/orders/{id}/send-email [post]
func handleSendEmail(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseOrderID(c.Param("id"))
		if !ok {
			notFound(c, "Order not found")
			return
		}

		if err := svcs.Orders.ResendEmail(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Seats ---

// @Summary  List performances with seat counts
// @Success  200 {object} PerformancesResponse
// @Router   /api/v1/performances [get]
func handleListPerformances(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		perfs, err := svcs.Seats.Performances(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		if perfs == nil {
			perfs = []domain.PerformanceAvailability{}
		}
		writeJSONWithCache(c, http.StatusOK, PerformancesResponse{Performances: perfs}, "public, max-age=15", true)
	}
}

// @Summary  Seat map with live holds
// @Param    date path string true "YYYY-MM-DD"
// @Success  200 {object} SeatMapResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/seats/{date} [get]
func handleSeatMap(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Param("date")
		view, err := svcs.Seats.SeatMap(c.Request.Context(), date, sessionID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		// the overlay is per session.
		writeJSONWithCache(c, http.StatusOK, SeatMapResponse{Date: date, Seats: view}, "private, no-cache", true)
	}
}

// @Summary  Stream seat changes (server-sent events)
// @Param    date path string true "YYYY-MM-DD"
// @Produce  text/event-stream
// @Router   /api/v1/seats/{date}/events [get]
func handleSeatEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Param("date")
		ctx := c.Request.Context()

		ch, cancel := svcs.Seats.Events().Subscribe(date)
		defer cancel()

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.SSEvent("ready", date)
		c.Writer.Flush()

		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case <-ch:
				c.SSEvent("seats_changed", date)
				return true
			case <-keepAlive.C:
				c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
				return true
			}
		})
	}
}

// @Summary  Hold seats for the browser session
// @Param    date path string true "YYYY-MM-DD"
// @Param    req  body SeatsRequest true "seats such as A12"
// @Success  200 {object} LockSeatsResponse
// @Failure  409 {object} SeatsUnavailableResponse
// @Failure  429 {object} ErrorResponse
// @Router   /api/v1/seats/{date}/locks [post]
func handleLockSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		refs, ok := bindSeats(c)
		if !ok {
			return
		}

		expires, err := svcs.Seats.LockSeats(
			c.Request.Context(),
			c.Param("date"),
			sessionID(c),
			c.ClientIP(),
			refs,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		names := make([]string, len(refs))
		for i, r := range refs {
			names[i] = r.String()
		}
		c.JSON(http.StatusOK, LockSeatsResponse{Seats: names, ExpiresAt: expires})
	}
}

// @Summary  Release seats held by the browser session
// @Param    date path string true "YYYY-MM-DD"
// @Param    req  body SeatsRequest true "seats such as A12"
// @Success  200 {object} ReleaseSeatsResponse
// @Router   /api/v1/seats/{date}/locks [delete]
func handleReleaseSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		refs, ok := bindSeats(c)
		if !ok {
			return
		}

		n, err := svcs.Seats.ReleaseSeats(c.Request.Context(), c.Param("date"), sessionID(c), refs)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ReleaseSeatsResponse{Released: n})
	}
}

func bindSeats(c *gin.Context) ([]domain.SeatRef, bool) {
	var req SeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return nil, false
	}

	refs, err := req.refs()
	if err != nil {
		badRequest(c, "Invalid seat number format")
		return nil, false
	}

	return refs, true
}

// --- Tickets ---

// @Summary  Ticket QR of an order, as linked from the confirmation email
// @Param    orderId   path string true "Order ID (uuid)"
// @Param    signature path string true "hex HMAC of the order id"
// @Produce  image/png
// @Success  200
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /api/v1/qrcode/order/{orderId}/{signature} [get]
func handleOrderQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		png, err := svcs.Tickets.OrderQR(c.Request.Context(), c.Param("orderId"), c.Param("signature"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", qrCacheMaxAge)
		c.Data(http.StatusOK, "image/png", png)
	}
}

// @Summary  Walk-in seat ticket as a data URL (admin)
// @Param    seatNumber query string true "seat such as A12"
// @Param    date       query string true "YYYY-MM-DD"
// @Success  200 {object} SeatQRResponse
// @Failure  409 {object} ErrorResponse "seat already booked"
// @Router   /api/v1/qrcode [get]
func handleSeatQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		seat, date, ok := seatQuery(c)
		if !ok {
			return
		}

		url, err := svcs.Tickets.SeatDataURL(c.Request.Context(), date, seat)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, SeatQRResponse{QRCode: url})
	}
}

// @Summary  Walk-in seat ticket as PNG (admin)
// @Param    seatNumber query string true "seat such as A12"
// @Param    date       query string true "YYYY-MM-DD"
// @Produce  image/png
// @Success  200
// @Router   /api/v1/qrcode/image [get]
func handleSeatQRImage(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		seat, date, ok := seatQuery(c)
		if !ok {
			return
		}

		png, err := svcs.Tickets.SeatPNG(c.Request.Context(), date, seat)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}

func seatQuery(c *gin.Context) (string, string, bool) {
	seat := strings.TrimSpace(c.Query("seatNumber"))
	if seat == "" {
		badRequest(c, "Missing seatNumber")
		return "", "", false
	}

	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		badRequest(c, "Missing date")
		return "", "", false
	}

	return seat, date, true
}

// @Summary  Resolve a scanned ticket
// @Param    req body ScanRequest true "payload"
// @Success  200 {object} ScanResponse
// @Failure  403 {object} ErrorResponse
// @Router   /api/v1/qrcode/scan [post]
func handleScan(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Missing or invalid QR data")
			return
		}

		info, err := svcs.Tickets.Scan(c.Request.Context(), req.QRData)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ScanResponse{Success: true, Order: info})
	}
}

// --- Admin ---

// @Summary  Admin login
// @Param    req body LoginRequest true "payload"
// @Success  200 {object} admin.Token
// @Failure  401 {object} ErrorResponse
// @Router   /api/v1/admin/login [post]
func handleLogin(svcs *service.Services, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		tok, err := svcs.Admin.Login(req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		maxAge := int(time.Until(tok.ExpiresAt).Seconds())
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(AdminCookie, tok.Token, maxAge, "/", "", secure, true)
		c.JSON(http.StatusOK, tok)
	}
}

// @Summary  Create a performance and its seat plan (admin)
// @Param    req body CreatePerformanceRequest true "payload"
// @Success  201 {object} CreatePerformanceResponse
// @Failure  409 {object} ErrorResponse
// @Router   /api/v1/admin/performances [post]
func handleCreatePerformance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePerformanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		p, n, err := svcs.Admin.CreatePerformance(c.Request.Context(), req.Date, req.Title, req.Rows)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreatePerformanceResponse{Performance: p, Seats: n})
	}
}

// --- Helpers ---

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}

func seatsUnavailable(c *gin.Context, refs []domain.SeatRef) {
	if refs == nil {
		refs = []domain.SeatRef{}
	}
	c.JSON(http.StatusConflict, SeatsUnavailableResponse{
		Error:        "Seats no longer available",
		InvalidSeats: refs,
	})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		orderSeats *orders.InvalidSeatsError
		heldSeats  *seats.UnavailableError
		limited    *seats.RateLimitedError
	)

	switch {
	// seats service
	case errors.As(err, &limited):
		c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
	case errors.As(err, &heldSeats):
		seatsUnavailable(c, heldSeats.Seats)
	case errors.Is(err, seats.ErrPerformanceNotFound):
		notFound(c, "Performance not found")
	case errors.Is(err, seats.ErrNoSeats),
		errors.Is(err, seats.ErrTooManySeats),
		errors.Is(err, seats.ErrDuplicateSeat):
		badRequest(c, lastCause(err))

	// orders service
	case errors.As(err, &orderSeats):
		seatsUnavailable(c, orderSeats.Seats)
	case errors.Is(err, orders.ErrInvalidOrder),
		errors.Is(err, pricing.ErrUnknownSeatType),
		errors.Is(err, domain.ErrInvalidSeatRef):
		badRequest(c, lastCause(err))
	case errors.Is(err, orders.ErrOrderNotFound):
		notFound(c, "Order not found")
	case errors.Is(err, orders.ErrNoCheckoutSession):
		badRequest(c, "Session ID is required")
	case errors.Is(err, orders.ErrNoPaymentIntent):
		notFound(c, "Payment intent not found for this session")
	case errors.Is(err, orders.ErrPaymentProviderDown):
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "payment provider unavailable"})
	case errors.Is(err, mailer.ErrSendFailed):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "failed to send email"})

	// reports service
	case errors.Is(err, reports.ErrInvalidDate):
		badRequest(c, "Invalid date")
	case errors.Is(err, reports.ErrInvalidSeat):
		badRequest(c, "Missing required parameters: date, rowLabel, or number")

	// tickets service
	case errors.Is(err, tickets.ErrInvalidSignature):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Invalid signature"})
	case errors.Is(err, tickets.ErrInvalidQRData):
		badRequest(c, "Invalid QR code format")
	case errors.Is(err, tickets.ErrOrderNotFound):
		notFound(c, "Order not found")
	case errors.Is(err, tickets.ErrInvalidSeat):
		badRequest(c, "Invalid seat number format")
	case errors.Is(err, tickets.ErrInvalidDate):
		badRequest(c, "Invalid date")
	case errors.Is(err, tickets.ErrSeatBooked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Seat already booked"})

	// admin service
	case errors.Is(err, admin.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
	case errors.Is(err, admin.ErrInvalidPerformance):
		badRequest(c, lastCause(err))
	case errors.Is(err, admin.ErrPerformanceConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "performance already exists"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// lastCause drops the "pkg.Type.Method: " prefixes from a wrapped error.
func lastCause(err error) string {
	msg := err.Error()
	for {
		i := strings.Index(msg, ": ")
		if i < 0 || !strings.Contains(msg[:i], ".") || strings.Contains(msg[:i], " ") {
			return msg
		}
		msg = msg[i+2:]
	}
}
