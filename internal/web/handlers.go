package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"shoestore/internal/api"
	"shoestore/internal/models"
	"shoestore/internal/policy"
	"shoestore/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type page struct {
	Title string
	User  *policy.Principal
	Flash *flash
}

func (s *Server) page(c *gin.Context, title string) page {
	p := page{Title: title, Flash: s.popFlash(c)}
	if u, ok := currentUser(c); ok {
		p.User = &u
	}
	return p
}

type indexPage struct {
	page
	Products      []models.ProductView
	Manufacturers []models.Manufacturer
	Filter        models.ProductFilter
	MaxPrice      string
	CanOrder      bool
}

func (s *Server) index(c *gin.Context) {
	data := indexPage{page: s.page(c, "Catalog")}
	data.CanOrder = data.User == nil || data.User.CanPlaceOrder()

	f, err := api.ParseProductFilter(c)
	if err != nil {
		data.Flash = &flash{Kind: "error", Message: err.Error()}
		c.HTML(http.StatusBadRequest, "index.html", data)
		return
	}
	data.Filter = f
	if f.MaxPrice != nil {
		data.MaxPrice = f.MaxPrice.String()
	}

	ctx := c.Request.Context()
	if data.Manufacturers, err = s.catalog.ListManufacturers(ctx); err != nil {
		s.logger.Error("Loading manufacturers failed", zap.Error(err))
	}
	if data.Products, err = s.catalog.QueryProducts(ctx, f); err != nil {
		s.logger.Error("Loading products failed", zap.Error(err))
		data.Flash = &flash{Kind: "error", Message: "Could not load products"}
	}

	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) productImage(c *gin.Context) {
	id, err := api.ParseID(c, "id")
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	img, err := s.catalog.GetProductImage(c.Request.Context(), id)
	if err != nil {
		c.Status(api.StatusFor(err))
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, http.DetectContentType(img), img)
}

type loginPage struct {
	page
	Login     string
	ReturnURL string
	Error     string
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", loginPage{
		page:      s.page(c, "Sign in"),
		ReturnURL: safeReturnURL(c.Query("returnUrl")),
	})
}

func (s *Server) login(c *gin.Context) {
	var req service.LoginRequest
	returnURL := safeReturnURL(c.PostForm("returnUrl"))
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", loginPage{
			page:      s.page(c, "Sign in"),
			Login:     c.PostForm("login"),
			ReturnURL: returnURL,
			Error:     "Enter your login and password",
		})
		return
	}

	p, err := s.auth.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Invalid login or password"
		if !errors.Is(err, service.ErrUnauthenticated) {
			s.logger.Error("Web login failed", zap.Error(err))
			status = http.StatusInternalServerError
			msg = "Sign in is temporarily unavailable"
		}
		c.HTML(status, "login.html", loginPage{
			page:      s.page(c, "Sign in"),
			Login:     req.Login,
			ReturnURL: returnURL,
			Error:     msg,
		})
		return
	}

	id, err := s.sessions.CreateSession(c.Request.Context(), p, s.cfg.SessionTTL)
	if err != nil {
		s.logger.Error("Session create failed", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "login.html", loginPage{
			page:      s.page(c, "Sign in"),
			Login:     req.Login,
			ReturnURL: returnURL,
			Error:     "Sign in is temporarily unavailable",
		})
		return
	}

	s.setCookie(c, s.cfg.CookieName, id, int(s.cfg.SessionTTL.Seconds()))
	s.logger.Info("Web login", zap.String("login", p.Login), zap.Stringer("role", p.Role))
	c.Redirect(http.StatusSeeOther, returnURL)
}

func (s *Server) logout(c *gin.Context) {
	if id, err := c.Cookie(s.cfg.CookieName); err == nil && id != "" {
		if err := s.sessions.DeleteSession(c.Request.Context(), id); err != nil {
			s.logger.Warn("Session delete failed", zap.Error(err))
		}
	}
	s.clearCookie(c, s.cfg.CookieName)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) accessDenied(c *gin.Context) {
	c.HTML(http.StatusForbidden, "access_denied.html", s.page(c, "Access denied"))
}

type ordersPage struct {
	page
	Orders       []models.Order
	Statuses     []models.OrderStatus
	StatusFilter string
	IsStaff      bool
}

func (s *Server) listOrders(c *gin.Context) {
	user, _ := currentUser(c)
	data := ordersPage{
		page:         s.page(c, "Orders"),
		StatusFilter: strings.TrimSpace(c.Query("status")),
		IsStaff:      user.Role.IsStaff(),
	}

	ctx := c.Request.Context()
	orders, err := s.orders.ListOrders(ctx, user, data.StatusFilter)
	if err != nil {
		s.logger.Error("Loading orders failed", zap.Error(err))
		data.Flash = &flash{Kind: "error", Message: "Could not load orders"}
	}
	data.Orders = orders

	if data.IsStaff {
		if data.Statuses, err = s.orders.ListStatuses(ctx); err != nil {
			s.logger.Warn("Loading statuses failed", zap.Error(err))
		}
	}

	c.HTML(http.StatusOK, "orders.html", data)
}

func (s *Server) placeOrder(c *gin.Context) {
	user, _ := currentUser(c)
	if !user.CanPlaceOrder() {
		s.setFlash(c, "error", "Only clients can place orders")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	productID, err := strconv.ParseInt(c.PostForm("productId"), 10, 64)
	if err != nil {
		s.setFlash(c, "error", "Unknown product")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	order, err := s.orders.PlaceOrder(c.Request.Context(), user, service.PlaceOrderRequest{ProductID: productID, Quantity: 1})
	if err != nil {
		s.setFlash(c, "error", "Order failed: "+userMessage(err))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	s.setFlash(c, "success", fmt.Sprintf("Order #%d placed. Delivery date: %s, pickup code: %d",
		order.ID, formatDate(order.DeliveryDate), order.PickupCode))
	c.Redirect(http.StatusSeeOther, "/orders")
}

func (s *Server) updateStatus(c *gin.Context) {
	user, _ := currentUser(c)
	if !user.CanMutateOrderLifecycle() {
		c.Redirect(http.StatusSeeOther, "/account/access-denied")
		return
	}

	id, err := api.ParseID(c, "id")
	if err != nil {
		s.setFlash(c, "error", userMessage(err))
		c.Redirect(http.StatusSeeOther, "/orders")
		return
	}

	name := strings.TrimSpace(c.PostForm("statusName"))
	if _, err := s.orders.UpdateStatus(c.Request.Context(), user, id, service.StatusChangeRequest{StatusName: name}); err != nil {
		s.setFlash(c, "error", "Status change failed: "+userMessage(err))
	} else {
		s.setFlash(c, "success", fmt.Sprintf("Order #%d is now %q", id, name))
	}
	c.Redirect(http.StatusSeeOther, "/orders")
}

func (s *Server) updateDeliveryDate(c *gin.Context) {
	user, _ := currentUser(c)
	if !user.CanMutateOrderLifecycle() {
		c.Redirect(http.StatusSeeOther, "/account/access-denied")
		return
	}

	id, err := api.ParseID(c, "id")
	if err != nil {
		s.setFlash(c, "error", userMessage(err))
		c.Redirect(http.StatusSeeOther, "/orders")
		return
	}

	date, err := api.ParseDate(c.PostForm("deliveryDate"))
	if err == nil {
		_, err = s.orders.UpdateDeliveryDate(c.Request.Context(), user, id, date)
	}
	if err != nil {
		s.setFlash(c, "error", "Delivery date change failed: "+userMessage(err))
	} else {
		s.setFlash(c, "success", fmt.Sprintf("Order #%d delivery date set to %s", id, date.Format("02.01.2006")))
	}
	c.Redirect(http.StatusSeeOther, "/orders")
}

// userMessage hides internal failures from page output
func userMessage(err error) string {
	if service.IsDomainError(err) {
		return err.Error()
	}
	return "internal error"
}
