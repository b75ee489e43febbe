package routes

import (
	"mindcare/api/handlers"
	"mindcare/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine) {
	router.Use(middleware.PrometheusMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/v1/")
	{
		public.POST("auth/register", handlers.Register)
		public.POST("auth/login", handlers.Login)
	}

	private := router.Group("/api/v1/")
	private.Use(middleware.AuthMiddleware())
	{
		private.POST("auth/logout", handlers.Logout)
		private.GET("users/:id", handlers.UserGet)

		// Друзья
		private.POST("friends/requests", handlers.SendFriendRequest)
		private.POST("friends/requests/:id/accept", handlers.AcceptFriendRequest)
		private.POST("friends/requests/:id/reject", handlers.RejectFriendRequest)
		private.POST("friends/requests/:id/cancel", handlers.CancelFriendRequest)
		private.GET("friends/requests", handlers.GetPendingRequests)
		private.GET("friends/requests/sent", handlers.GetSentRequests)
		private.GET("friends", handlers.GetFriendList)
		private.DELETE("friends/:id", handlers.RemoveFriend)

		// Личные сообщения
		private.POST("dialogs/:user_id/messages", handlers.SendDirectMessage)
		private.GET("dialogs/:user_id/messages", handlers.GetChatHistory)
		private.PUT("messages/:id", handlers.EditDirectMessage)
		private.POST("messages/:id/read", handlers.MarkMessageAsRead)
		private.GET("chats", handlers.GetUserChatList)
		private.GET("chats/unread", handlers.GetUnreadMessageCount)

		// Группы
		private.POST("groups", handlers.CreateGroup)
		private.GET("groups", handlers.ListGroups)
		private.DELETE("groups/:id", handlers.DeleteGroup)
		private.POST("groups/:id/join", handlers.JoinGroup)
		private.POST("groups/:id/leave", handlers.LeaveGroup)
		private.POST("groups/:id/admin", handlers.ChangeGroupAdmin)
		private.GET("groups/:id/members", handlers.GetGroupMembers)
		private.POST("groups/:id/messages", handlers.SendGroupMessage)
		private.GET("groups/:id/messages", handlers.GetGroupMessages)
		private.POST("groups/:id/read", handlers.MarkGroupRead)
		private.PUT("group-messages/:id", handlers.EditGroupMessage)
		private.POST("groups/:id/invites", handlers.SendGroupInvite)
		private.GET("invites", handlers.GetPendingInvites)
		private.POST("invites/:id/accept", handlers.AcceptGroupInvite)
		private.POST("invites/:id/decline", handlers.DeclineGroupInvite)

		// Посты и лента
		private.POST("posts", handlers.CreatePost)
		private.PUT("posts/:id", handlers.UpdatePost)
		private.DELETE("posts/:id", handlers.DeletePost)
		private.GET("users/:id/posts", handlers.GetUserPosts)
		private.GET("feed", handlers.GetFeed)
		private.POST("posts/:id/comments", handlers.CreateComment)
		private.GET("posts/:id/comments", handlers.GetPostComments)
		private.PUT("comments/:id", handlers.UpdateComment)
		private.DELETE("comments/:id", handlers.DeleteComment)

		// Самочувствие
		private.POST("moods", handlers.CreateMoodEntry)
		private.GET("moods", handlers.GetMoodEntries)
		private.DELETE("moods/:id", handlers.DeleteMoodEntry)
		private.POST("journal", handlers.CreateJournalEntry)
		private.GET("journal", handlers.GetJournalEntries)
		private.PUT("journal/:id", handlers.UpdateJournalEntry)
		private.DELETE("journal/:id", handlers.DeleteJournalEntry)

		// Push-события
		private.GET("ws", handlers.WSConnect)
	}
}
