package handler

import "github.com/gin-gonic/gin"

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Boxes       *BoxHandler
	Stock       *StockHandler
	Parts       *PartHandler
	Kits        *KitHandler
	Attachments *AttachmentHandler
	Exports     *ExportHandler
}

// RegisterRoutes mounts the API under api, which is normally the configured prefix group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	boxes := api.Group("/boxes")
	{
		boxes.GET("", h.Boxes.List)
		boxes.POST("", h.Boxes.Create)
		boxes.GET("/:boxNo", h.Boxes.Get)
		boxes.PUT("/:boxNo", h.Boxes.Update)
		boxes.DELETE("/:boxNo", h.Boxes.Delete)
		boxes.GET("/:boxNo/contents", h.Boxes.Contents)
		boxes.GET("/:boxNo/export", h.Exports.BoxContents)
	}

	api.GET("/locations/suggest", h.Stock.Suggest)

	parts := api.Group("/parts")
	{
		parts.GET("", h.Parts.List)
		parts.POST("", h.Parts.Create)
		parts.GET("/:key", h.Parts.Get)
		parts.PUT("/:key", h.Parts.Update)
		parts.DELETE("/:key", h.Parts.Delete)
		parts.GET("/:key/stock", h.Stock.Stock)
		parts.POST("/:key/stock/add", h.Stock.Add)
		parts.POST("/:key/stock/remove", h.Stock.Remove)
		parts.POST("/:key/stock/move", h.Stock.Move)
		parts.GET("/:key/stock/export", h.Exports.PartStock)
		parts.GET("/:key/history", h.Stock.History)
	}

	kits := api.Group("/kits")
	{
		kits.GET("", h.Kits.List)
		kits.POST("", h.Kits.Create)
		kits.GET("/:id", h.Kits.Get)
		kits.DELETE("/:id", h.Kits.Delete)
	}

	sets := api.Group("/attachment-sets/:setId")
	{
		sets.GET("", h.Attachments.GetSet)
		sets.PUT("/cover", h.Attachments.SetCover)
		sets.POST("/attachments", h.Attachments.Upload)
		sets.POST("/urls", h.Attachments.AddURL)
		sets.GET("/attachments/:id", h.Attachments.Get)
		sets.PATCH("/attachments/:id", h.Attachments.UpdateTitle)
		sets.DELETE("/attachments/:id", h.Attachments.Delete)
		sets.GET("/attachments/:id/content", h.Attachments.Content)
		sets.GET("/attachments/:id/download-url", h.Attachments.DownloadURL)
	}

	api.GET("/attachments/download", h.Attachments.Download)
}
