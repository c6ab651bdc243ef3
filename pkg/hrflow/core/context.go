package core

type ctxKey string

const (
	CtxKeyUsername  ctxKey = ctxKey("username")
	CtxKeyUserId    ctxKey = ctxKey("userId")
	CtxKeyCompanyId ctxKey = ctxKey("companyId")
)
