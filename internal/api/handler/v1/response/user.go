package response

type PointsResponse struct {
	Message     string `json:"message"`
	UserID      uint   `json:"user_id"`
	Points      int    `json:"points"`
	TotalPoints int    `json:"total_points"`
}
