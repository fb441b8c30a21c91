package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/temirov/rtfr/internal/acknowledgement"
)

const (
	tokenParameterConstant          = "token"
	cacheRouteConstant              = "/cache/:token"
	tokenRouteConstant              = "/token"
	tokenRevocationRouteConstant    = "/token/:token"
	healthRouteConstant             = "/healthz"
	metricsRouteConstant            = "/metrics"
	unmatchedRouteLabelConstant     = "unmatched"
	healthyResponseConstant         = "ok"
	errorFieldConstant              = "error"
	malformedPayloadMessageConstant = "acknowledgement payload is malformed"
	throttledMessageConstant        = "too many token requests"
	internalErrorMessageConstant    = "internal error"
	requestHandledMessageConstant   = "Handled request"
	requestFailedMessageConstant    = "Request failed"
	routeLogFieldConstant           = "route"
	methodLogFieldConstant          = "method"
	statusLogFieldConstant          = "status"
	durationLogFieldConstant        = "duration"
)

// NewTokenLimiter allows ratePerMinute token requests per minute with bursts of the same size.
func NewTokenLimiter(ratePerMinute int) *rate.Limiter {
	if ratePerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute)
}

type handlers struct {
	cache     *Cache
	limiter   *rate.Limiter
	metrics   *Metrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRouter wires the acknowledgement routes, health check and metrics endpoint onto a gin engine.
func NewRouter(cache *Cache, metrics *Metrics, limiter *rate.Limiter, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewTokenLimiter(0)
	}
	routeHandlers := &handlers{
		cache:     cache,
		limiter:   limiter,
		metrics:   metrics,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), routeHandlers.observe)

	engine.GET(cacheRouteConstant, routeHandlers.getDocument)
	engine.POST(cacheRouteConstant, routeHandlers.mergeRecord)
	engine.PUT(cacheRouteConstant, routeHandlers.deleteRecords)
	engine.GET(tokenRouteConstant, routeHandlers.issueToken)
	engine.DELETE(tokenRevocationRouteConstant, routeHandlers.revokeToken)
	engine.GET(healthRouteConstant, func(requestContext *gin.Context) {
		requestContext.String(http.StatusOK, healthyResponseConstant)
	})
	if metrics != nil {
		engine.GET(metricsRouteConstant, gin.WrapH(metrics.Handler()))
	}
	return engine
}

func (routeHandlers *handlers) getDocument(requestContext *gin.Context) {
	document, loadError := routeHandlers.cache.Document(requestContext.Request.Context(), requestContext.Param(tokenParameterConstant))
	if loadError != nil {
		routeHandlers.fail(requestContext, loadError)
		return
	}
	if document.Users == nil {
		document.Users = []acknowledgement.UserRecord{}
	}
	requestContext.JSON(http.StatusOK, document)
}

func (routeHandlers *handlers) mergeRecord(requestContext *gin.Context) {
	posted, bindError := routeHandlers.bindUserRecord(requestContext)
	if bindError != nil {
		return
	}
	conflict, mergeError := routeHandlers.cache.Merge(requestContext.Request.Context(), requestContext.Param(tokenParameterConstant), posted)
	if mergeError != nil {
		routeHandlers.fail(requestContext, mergeError)
		return
	}
	if conflict != nil {
		requestContext.JSON(http.StatusOK, conflict)
		return
	}
	requestContext.String(http.StatusOK, acknowledgement.AcceptedResponseBody)
}

func (routeHandlers *handlers) deleteRecords(requestContext *gin.Context) {
	deleted, bindError := routeHandlers.bindUserRecord(requestContext)
	if bindError != nil {
		return
	}
	if deleteError := routeHandlers.cache.Delete(requestContext.Request.Context(), requestContext.Param(tokenParameterConstant), deleted); deleteError != nil {
		routeHandlers.fail(requestContext, deleteError)
		return
	}
	requestContext.String(http.StatusOK, acknowledgement.AcceptedResponseBody)
}

func (routeHandlers *handlers) issueToken(requestContext *gin.Context) {
	if !routeHandlers.limiter.Allow() {
		routeHandlers.metrics.observeTokenThrottled()
		requestContext.JSON(http.StatusTooManyRequests, gin.H{errorFieldConstant: throttledMessageConstant})
		return
	}
	token, issueError := routeHandlers.cache.IssueToken(requestContext.Request.Context())
	if issueError != nil {
		routeHandlers.fail(requestContext, issueError)
		return
	}
	requestContext.String(http.StatusOK, token)
}

func (routeHandlers *handlers) revokeToken(requestContext *gin.Context) {
	if revokeError := routeHandlers.cache.RevokeToken(requestContext.Request.Context(), requestContext.Param(tokenParameterConstant)); revokeError != nil {
		routeHandlers.fail(requestContext, revokeError)
		return
	}
	requestContext.String(http.StatusOK, acknowledgement.AcceptedResponseBody)
}

// bindUserRecord decodes and validates the body, answering 400 itself when it is malformed.
func (routeHandlers *handlers) bindUserRecord(requestContext *gin.Context) (acknowledgement.UserRecord, error) {
	var record acknowledgement.UserRecord
	bindError := requestContext.ShouldBindJSON(&record)
	if bindError == nil {
		bindError = routeHandlers.validator.Struct(record)
	}
	if bindError != nil {
		requestContext.JSON(http.StatusBadRequest, gin.H{errorFieldConstant: malformedPayloadMessageConstant})
		return acknowledgement.UserRecord{}, bindError
	}
	return record, nil
}

func (routeHandlers *handlers) fail(requestContext *gin.Context, failure error) {
	if errors.Is(failure, ErrUnknownToken) {
		requestContext.JSON(http.StatusNotFound, gin.H{errorFieldConstant: ErrUnknownToken.Error()})
		return
	}
	routeHandlers.logger.Error(requestFailedMessageConstant, zap.String(routeLogFieldConstant, requestContext.FullPath()), zap.Error(failure))
	requestContext.JSON(http.StatusInternalServerError, gin.H{errorFieldConstant: internalErrorMessageConstant})
}

// observe records request metrics and a debug log line once the handler chain has run.
func (routeHandlers *handlers) observe(requestContext *gin.Context) {
	startedAt := time.Now()
	requestContext.Next()

	route := requestContext.FullPath()
	if len(route) == 0 {
		route = unmatchedRouteLabelConstant
	}
	status := requestContext.Writer.Status()
	elapsed := time.Since(startedAt)
	if routeHandlers.metrics != nil {
		routeHandlers.metrics.requests.WithLabelValues(route, requestContext.Request.Method, strconv.Itoa(status)).Inc()
		routeHandlers.metrics.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	}
	routeHandlers.logger.Debug(requestHandledMessageConstant,
		zap.String(routeLogFieldConstant, route),
		zap.String(methodLogFieldConstant, requestContext.Request.Method),
		zap.Int(statusLogFieldConstant, status),
		zap.Duration(durationLogFieldConstant, elapsed),
	)
}
