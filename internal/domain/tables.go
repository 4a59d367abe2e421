package domain

var Tables = []interface{}{
	// System
	&SysOpr{},
	&SysOprLog{},
	// Shop
	&Bike{},
	&Customer{},
	&Sale{},
}
