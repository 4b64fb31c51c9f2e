package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every handler on the router.
func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	// The webhook stays outside the session middleware so processor
	// calls never receive cookies.
	router.POST("/api/payments/webhook", impl.StripeWebhook)

	public := router.Group("/api", impl.SessionMiddleware(), impl.ResolveAuth())
	{
		public.GET("/auctions", impl.ListAuctions)
		public.GET("/auctions/:auctionID", impl.GetAuction)
		public.GET("/auctions/:auctionID/events", impl.GetAuctionEvents)

		public.GET("/funnels", impl.ListFunnels)
		public.GET("/funnels/:funnelID", impl.GetFunnel)
		public.GET("/categories", impl.ListCategories)

		public.POST("/requests/custom", impl.CreateCustomRequest)
		public.POST("/funnels/:funnelID/lease", impl.CreateLeaseRequest)

		public.GET("/auth/sso/:provider/login", impl.SSOLogin)
		public.GET("/auth/sso/:provider/callback", impl.SSOCallback)
		public.GET("/auth/logout", impl.Logout)
	}

	authed := public.Group("", impl.RequireAuth())
	{
		authed.POST("/auctions/:auctionID/bids", impl.PlaceBid)
		authed.POST("/auctions/:auctionID/buy-now", impl.BuyNow)

		authed.POST("/purchases", impl.CreatePurchase)
		authed.GET("/purchases", impl.ListMyPurchases)
		authed.GET("/purchases/:purchaseID", impl.GetPurchase)
		authed.POST("/purchases/:purchaseID/verify", impl.VerifyPurchase)

		authed.GET("/users/me", impl.GetUserInfo)
		authed.PATCH("/users/me", impl.PatchUserInfo)

		authed.POST("/images", impl.UploadImage)
	}

	admin := authed.Group("/admin", impl.RequireAdmin())
	{
		admin.POST("/auctions", impl.CreateAuction)
		admin.PATCH("/auctions/:auctionID", impl.UpdateAuction)
		admin.POST("/auctions/:auctionID/status", impl.SetAuctionStatus)
		admin.GET("/auctions/export", impl.ExportAuctions)

		admin.POST("/funnels", impl.CreateFunnel)
		admin.PATCH("/funnels/:funnelID", impl.UpdateFunnel)
		admin.DELETE("/funnels/:funnelID", impl.DeleteFunnel)
		admin.GET("/funnels/export", impl.ExportFunnels)
		admin.POST("/categories", impl.CreateCategory)

		admin.GET("/requests/custom", impl.ListCustomRequests)
		admin.POST("/requests/custom/:requestID/status", impl.TransitionCustomRequest)
		admin.GET("/requests/custom/export", impl.ExportCustomRequests)
		admin.GET("/requests/lease", impl.ListLeaseRequests)
		admin.POST("/requests/lease/:requestID/status", impl.TransitionLeaseRequest)
		admin.GET("/requests/lease/export", impl.ExportLeaseRequests)

		admin.GET("/purchases", impl.ListPurchases)
		admin.GET("/purchases/export", impl.ExportPurchases)

		admin.GET("/users", impl.ListUsers)
		admin.GET("/users/export", impl.ExportUsers)
		admin.POST("/users/:userID/role", impl.SetUserRole)
	}
}
