package auth

// represents the authentication response
type AuthResponse struct {
	Employee     EmployeeResponse `json:"employee"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"`
}

// employee data without the password hash
type EmployeeResponse struct {
	ID         int64  `json:"id"`
	OperatorID *int64 `json:"operator_id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

func toEmployeeResponse(e *Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		OperatorID: e.OperatorID,
		Name:       e.Name,
		Email:      e.Email,
		Role:       e.Role,
	}
}
